package document

import (
	"time"

	"github.com/inamate/logicsketch/internal/typeid"
)

// Sample element tags. They match the simulation factory keys.
const (
	tagSignal = "SIGNAL"
	tagAnd    = "AND"
	tagPulse  = "TIMER-PULSE"
)

// NewSampleDocument builds a small circuit: an SR latch made of two AND gates
// with inverted inputs (NOR equivalents) driven by the signals "S" and "R",
// and a one second pulse timer triggered by "Start".
func NewSampleDocument() *Document {
	now := time.Now().UTC().Format(time.RFC3339)

	b := NewBuilder(typeid.NewDocumentID(), "SR latch")
	b.Doc.CreatedAt = now
	b.Doc.UpdatedAt = now

	title := b.Rectangle(20, 20, 460, 300)
	frame := b.Doc.Shapes[title]
	frame.Style = Style{Stroke: "#16213e", StrokeWidth: 1}
	b.Doc.Shapes[title] = frame

	set := b.Gate(tagSignal, 40, 60, 0, map[string]string{"State": "false"})
	reset := b.Gate(tagSignal, 40, 160, 0, map[string]string{"State": "false"})
	b.rename(set.ID, "S")
	b.rename(reset.ID, "R")

	// Q = !R & !Qn, Qn = !S & !Q
	q := b.Gate(tagAnd, 200, 60, 2, nil, 0, 1)
	qn := b.Gate(tagAnd, 200, 160, 2, nil, 0, 1)
	b.rename(q.ID, "Q")
	b.rename(qn.ID, "Qn")

	b.Wire(reset.Output, q.Inputs[0])
	b.Wire(qn.Output, q.Inputs[1])
	b.Wire(set.Output, qn.Inputs[0])
	b.Wire(q.Output, qn.Inputs[1])

	start := b.Gate(tagSignal, 40, 240, 0, map[string]string{"State": "false"})
	b.rename(start.ID, "Start")
	pulse := b.Gate(tagPulse, 200, 240, 1, map[string]string{"Delay": "1", "Unit": "s"})
	b.Wire(start.Output, pulse.Inputs[0])

	lamp := b.Shape(KindEllipse, b.Point(320, 250), b.Point(350, 280))
	shape := b.Doc.Shapes[lamp]
	shape.Style = Style{Fill: "#f5a623", Stroke: "#c78400", StrokeWidth: 2}
	b.Doc.Shapes[lamp] = shape
	b.Wire(pulse.Output, b.Doc.Shapes[lamp].Points[0])

	return b.Doc
}

func (b *Builder) rename(id, name string) {
	s := b.Doc.Shapes[id]
	s.Name = name
	b.Doc.Shapes[id] = s
}
