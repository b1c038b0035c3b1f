// Package feedback holds the scored rubric tree produced by grading a try.
package feedback

import (
	"context"

	"github.com/pavelanni/mrtutor/internal/model"
)

// Tier rates how correct a rubric item is, independent of its points.
type Tier int

const (
	TierWrong Tier = iota
	TierMostlyWrong
	TierPartial
	TierNearCorrect
	TierCorrect
)

var tierNames = [...]string{"wrong", "mostly_wrong", "partial", "near_correct", "correct"}

func (t Tier) String() string {
	if t < TierWrong || t > TierCorrect {
		return "unknown"
	}
	return tierNames[t]
}

// Categories of the rubric.
const (
	CategoryReading   = "reading"
	CategoryMeasuring = "measuring"
	CategoryTRange    = "t_range"
	CategoryTime      = "time"
)

// Rubric items.
const (
	ItemRatedRValue     = "rated_r_value"
	ItemRatedTValue     = "rated_t_value"
	ItemPlugConnection  = "plug_connection"
	ItemProbeConnection = "probe_connection"
	ItemKnobSetting     = "knob_setting"
	ItemPowerSwitch     = "power_switch"
	ItemMeasuredRValue  = "measured_r_value"
	ItemTaskOrder       = "task_order"
	ItemTRangeValue     = "t_range_value"
	ItemWithinTolerance = "within_tolerance"
	ItemReadingTime     = "reading_time"
	ItemMeasuringTime   = "measuring_time"
)

// Message is one titled feedback text attached to an item.
type Message struct {
	Key   string `json:"key"`
	Title string `json:"title"`
	Body  string `json:"body"`
}

// Item is a node of the rubric tree. Leaves carry a tier and points;
// interior nodes only group their children.
type Item struct {
	Name      string    `json:"name"`
	Correct   Tier      `json:"correct"`
	Points    int       `json:"points"`
	MaxPoints int       `json:"max_points"`
	Desc      string    `json:"desc,omitempty"`
	Feedbacks []Message `json:"feedbacks,omitempty"`
	Children  []*Item   `json:"children,omitempty"`
}

func newItem(name string, maxPoints int, children ...*Item) *Item {
	return &Item{Name: name, MaxPoints: maxPoints, Children: children}
}

// Fold visits it and all its descendants depth first, threading acc
// through f.
func Fold[T any](it *Item, acc T, f func(T, *Item) T) T {
	if it == nil {
		return acc
	}
	acc = f(acc, it)
	for _, c := range it.Children {
		acc = Fold(c, acc, f)
	}
	return acc
}

// SumPoints returns the points of it and all its descendants.
func (it *Item) SumPoints() int {
	return Fold(it, 0, func(acc int, n *Item) int { return acc + n.Points })
}

// SumMaxPoints returns the maximum points of it and all its descendants.
func (it *Item) SumMaxPoints() int {
	return Fold(it, 0, func(acc int, n *Item) int { return acc + n.MaxPoints })
}

// Child returns the direct child with the given name, or nil.
func (it *Item) Child(name string) *Item {
	for _, c := range it.Children {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// Leaves returns the items without children, in tree order.
func (it *Item) Leaves() []*Item {
	return Fold(it, []*Item(nil), func(acc []*Item, n *Item) []*Item {
		if len(n.Children) == 0 {
			return append(acc, n)
		}
		return acc
	})
}

// Score sets the tier and points of a leaf.
func (it *Item) Score(tier Tier, points int) {
	it.Correct = tier
	it.Points = points
}

// AddFeedback appends the message registered for key on this item, with
// subs filled into its emphasized slots.
func (it *Item) AddFeedback(ctx context.Context, key string, subs ...any) {
	it.Feedbacks = append(it.Feedbacks, render(ctx, it.Name, key, subs))
}

// Feedback is the result of grading one try.
type Feedback struct {
	Root *Item `json:"root"`

	InitialDialSetting model.DialSetting `json:"initial_dial_setting"`
	SubmitDialSetting  model.DialSetting `json:"submit_dial_setting"`
	OptimalDialSetting model.DialSetting `json:"optimal_dial_setting"`

	// ExpectedRange is the tolerance range the learner's own rated answers
	// imply, in ohms.
	ExpectedRange [2]float64 `json:"expected_range"`
	// ExpectedWithin is "yes" or "no" when the within-tolerance question
	// was gradable, empty otherwise.
	ExpectedWithin string `json:"expected_within,omitempty"`
}

// New builds an unscored rubric tree.
func New() *Feedback {
	return &Feedback{
		Root: newItem("root", 0,
			newItem(CategoryReading, 0,
				newItem(ItemRatedRValue, 20),
				newItem(ItemRatedTValue, 5),
			),
			newItem(CategoryMeasuring, 0,
				newItem(ItemPlugConnection, 5),
				newItem(ItemProbeConnection, 2),
				newItem(ItemKnobSetting, 20),
				newItem(ItemPowerSwitch, 2),
				newItem(ItemMeasuredRValue, 10),
				newItem(ItemTaskOrder, 6),
			),
			newItem(CategoryTRange, 0,
				newItem(ItemTRangeValue, 15),
				newItem(ItemWithinTolerance, 5),
			),
			newItem(CategoryTime, 0,
				newItem(ItemReadingTime, 5),
				newItem(ItemMeasuringTime, 5),
			),
		),
	}
}

// Category returns a top-level category, or nil.
func (f *Feedback) Category(name string) *Item {
	return f.Root.Child(name)
}

// Item returns a rubric item of a category, or nil.
func (f *Feedback) Item(category, name string) *Item {
	c := f.Category(category)
	if c == nil {
		return nil
	}
	return c.Child(name)
}

// Points returns the total score.
func (f *Feedback) Points() int { return f.Root.SumPoints() }

// MaxPoints returns the highest attainable score.
func (f *Feedback) MaxPoints() int { return f.Root.SumMaxPoints() }
