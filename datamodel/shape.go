package datamodel

import (
	"encoding/json"

	"github.com/pkg/errors"
)

// Shape describes which parts of an entity payload are user populated.
// It is a tagged sum over the three forms the configuration document may
// take at any level of the user_populated_properties tree: a boolean
// leaf, an object with per-key sub-shapes, or a single-element list
// whose element is the template applied to every member of a list of
// dicts in the payload.
type Shape struct {
	leaf   bool
	keep   bool
	object map[string]*Shape
	list   *Shape
}

// Creates a leaf shape. The keep flag decides whether the field the
// leaf describes is retained in the comparable view.
func NewLeafShape(keep bool) *Shape {
	return &Shape{leaf: true, keep: keep}
}

// Creates an object shape with per-key sub-shapes.
func NewObjectShape(object map[string]*Shape) *Shape {
	return &Shape{object: object}
}

// Creates a list shape with the template applied to every element.
func NewListShape(template *Shape) *Shape {
	return &Shape{list: template}
}

// Indicates whether the shape is a boolean leaf.
func (s *Shape) IsLeaf() bool {
	return s.leaf
}

// Indicates whether a leaf shape retains its field.
func (s *Shape) Keep() bool {
	return s.leaf && s.keep
}

// Returns the per-key sub-shapes of an object shape, or nil.
func (s *Shape) Object() map[string]*Shape {
	return s.object
}

// Returns the element template of a list shape, or nil.
func (s *Shape) List() *Shape {
	return s.list
}

// Parses a shape from its JSON form.
func (s *Shape) UnmarshalJSON(data []byte) error {
	var keep bool
	if err := json.Unmarshal(data, &keep); err == nil {
		s.leaf = true
		s.keep = keep
		return nil
	}
	var object map[string]*Shape
	if err := json.Unmarshal(data, &object); err == nil {
		s.leaf = false
		s.object = object
		return nil
	}
	var list []*Shape
	if err := json.Unmarshal(data, &list); err == nil {
		if len(list) != 1 {
			return errors.Errorf("list shape must hold exactly one template element, got %d", len(list))
		}
		s.leaf = false
		s.list = list[0]
		return nil
	}
	return errors.New("shape must be a boolean, an object or a single-element list")
}
