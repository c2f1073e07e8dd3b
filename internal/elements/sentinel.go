package elements

import (
	"errors"

	"faucet-agent/internal/entity"
	"faucet-agent/internal/ports"
)

var errNoElement = errors.New("condition matched without a concrete element")

// sentinel stands in for a match of a boolean-fact condition, so callers
// can keep treating every wait result as a list of elements.
type sentinel struct{}

func Sentinel() ports.Node { return sentinel{} }

func IsSentinel(node ports.Node) bool {
	_, ok := node.(sentinel)

	return ok
}

func (sentinel) Text() (string, error)            { return "", errNoElement }
func (sentinel) Attribute(string) (string, error) { return "", errNoElement }
func (sentinel) Property(string) (string, error)  { return "", errNoElement }
func (sentinel) Visible() (bool, error)           { return false, errNoElement }
func (sentinel) Click() error                     { return errNoElement }
func (sentinel) Clear() error                     { return errNoElement }
func (sentinel) Type(string) error                { return errNoElement }

func (sentinel) Find(entity.Locator) ([]ports.Node, error) { return nil, errNoElement }
