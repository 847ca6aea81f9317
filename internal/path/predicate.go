package path

import (
	"github.com/jacoelho/jpq/internal/mapping"
)

// Predicate decides whether a candidate passes a filter segment.
// Inline filters compiled from an expression and caller-supplied predicates
// satisfy the same contract.
type Predicate interface {
	Apply(ctx PredicateContext) (bool, error)
}

// PredicateFunc adapts a function to Predicate.
type PredicateFunc func(ctx PredicateContext) (bool, error)

func (f PredicateFunc) Apply(ctx PredicateContext) (bool, error) {
	return f(ctx)
}

// PredicateContext is what a predicate sees for one candidate.
type PredicateContext interface {
	// Item is the raw candidate.
	Item() any
	// ItemAs converts the candidate into target, which must be a non-nil
	// pointer. Failures wrap ErrMapping.
	ItemAs(target any) error
	// Root is the document being evaluated.
	Root() any
	Config() Config
}

type predicateContext struct {
	item any
	root any
	cfg  Config
}

func (p predicateContext) Item() any      { return p.item }
func (p predicateContext) Root() any      { return p.root }
func (p predicateContext) Config() Config { return p.cfg }

func (p predicateContext) ItemAs(target any) error {
	if err := mapping.Convert(p.item, target); err != nil {
		return &Error{Kind: ErrMapping, Msg: err.Error()}
	}
	return nil
}

// All accepts a candidate only when every predicate does.
func All(preds ...Predicate) Predicate {
	return PredicateFunc(func(ctx PredicateContext) (bool, error) {
		for _, p := range preds {
			ok, err := p.Apply(ctx)
			if err != nil || !ok {
				return false, err
			}
		}
		return true, nil
	})
}
