//go:build js && wasm

package main

import (
	"encoding/json"
	"syscall/js"

	"github.com/inamate/logicsketch/internal/document"
	"github.com/inamate/logicsketch/internal/engine"
	"github.com/inamate/logicsketch/internal/geometry"
	"github.com/inamate/logicsketch/internal/simulation"
)

var eng *engine.Engine

func main() {
	var err error
	eng, err = engine.New(engine.Options{})
	if err != nil {
		panic(err)
	}

	api := js.Global().Get("Object").New()

	// --- Commands (frontend → engine) ---
	api.Set("loadDocument", js.FuncOf(loadDocument))
	api.Set("updateDocument", js.FuncOf(updateDocument))
	api.Set("loadSampleDocument", js.FuncOf(loadSampleDocument))
	api.Set("setView", js.FuncOf(setView))
	api.Set("setSelection", js.FuncOf(setSelection))
	api.Set("compile", js.FuncOf(compile))
	api.Set("reset", js.FuncOf(reset))
	api.Set("tick", js.FuncOf(tick))
	api.Set("run", js.FuncOf(run))
	api.Set("setSignal", js.FuncOf(setSignal))
	api.Set("toggleSignal", js.FuncOf(toggleSignal))

	// --- Queries (frontend ← engine) ---
	api.Set("hitTest", js.FuncOf(hitTest))
	api.Set("hitTestPoint", js.FuncOf(hitTestPoint))
	api.Set("selectRect", js.FuncOf(selectRect))
	api.Set("getSelection", js.FuncOf(getSelection))
	api.Set("getSelectionBounds", js.FuncOf(getSelectionBounds))
	api.Set("getStates", js.FuncOf(getStates))
	api.Set("getWarnings", js.FuncOf(getWarnings))
	api.Set("getCycle", js.FuncOf(getCycle))
	api.Set("getGates", js.FuncOf(getGates))
	api.Set("getDocument", js.FuncOf(getDocument))

	js.Global().Set("logicEngine", api)
	js.Global().Set("logicWasmReady", js.ValueOf(true))

	select {}
}

func ok() interface{} {
	return js.ValueOf(map[string]interface{}{"ok": true})
}

func fail(err error) interface{} {
	return js.ValueOf(map[string]interface{}{"error": err.Error()})
}

func missing(what string) interface{} {
	return js.ValueOf(map[string]interface{}{"error": "missing " + what})
}

// toJSON encodes v for the frontend, which parses query results itself.
func toJSON(v interface{}) interface{} {
	data, err := json.Marshal(v)
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(string(data))
}

// --- Command Handlers ---

func loadDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("document JSON")
	}
	if err := eng.LoadDocument([]byte(args[0].String())); err != nil {
		return fail(err)
	}
	return ok()
}

func updateDocument(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("document JSON")
	}
	doc, err := document.Parse([]byte(args[0].String()))
	if err != nil {
		return fail(err)
	}
	eng.UpdateDocument(doc)
	return ok()
}

func loadSampleDocument(this js.Value, args []js.Value) interface{} {
	eng.LoadSampleDocument()
	return ok()
}

func setView(this js.Value, args []js.Value) interface{} {
	if len(args) < 3 {
		return missing("zoom, panX and panY")
	}
	eng.SetView(engine.View{Zoom: args[0].Float(), PanX: args[1].Float(), PanY: args[2].Float()})
	return ok()
}

func setSelection(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 || args[0].Type() != js.TypeObject {
		eng.SetSelection(nil)
		return nil
	}

	arr := args[0]
	ids := make([]string, arr.Length())
	for i := range ids {
		ids[i] = arr.Index(i).String()
	}
	eng.SetSelection(ids)
	return nil
}

func compile(this js.Value, args []js.Value) interface{} {
	if err := eng.Compile(); err != nil {
		return fail(err)
	}
	return ok()
}

func reset(this js.Value, args []js.Value) interface{} {
	if err := eng.Reset(); err != nil {
		return fail(err)
	}
	return ok()
}

func tick(this js.Value, args []js.Value) interface{} {
	if err := eng.Tick(); err != nil {
		return fail(err)
	}
	return ok()
}

func run(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("tick count")
	}
	if err := eng.Run(args[0].Int()); err != nil {
		return fail(err)
	}
	return ok()
}

func setSignal(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return missing("signal ID and value")
	}
	v := simulation.Unknown
	if args[1].Type() == js.TypeBoolean {
		v = simulation.FromBool(args[1].Bool())
	}
	if err := eng.SetSignal(args[0].String(), v); err != nil {
		return fail(err)
	}
	return ok()
}

func toggleSignal(this js.Value, args []js.Value) interface{} {
	if len(args) < 1 {
		return missing("signal ID")
	}
	v, err := eng.ToggleSignal(args[0].String())
	if err != nil {
		return fail(err)
	}
	return js.ValueOf(v.String())
}

// --- Query Handlers ---

func hitTest(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	id, err := eng.HitTest(args[0].Float(), args[1].Float())
	if err != nil {
		return js.ValueOf("")
	}
	return js.ValueOf(id)
}

func hitTestPoint(this js.Value, args []js.Value) interface{} {
	if len(args) < 2 {
		return js.ValueOf("")
	}
	id, err := eng.HitTestPoint(args[0].Float(), args[1].Float())
	if err != nil {
		return js.ValueOf("")
	}
	return js.ValueOf(id)
}

func selectRect(this js.Value, args []js.Value) interface{} {
	if len(args) < 4 {
		return missing("x, y, width and height")
	}
	r := geometry.Rect(args[0].Float(), args[1].Float(), args[2].Float(), args[3].Float())
	ids, err := eng.SelectRect(r)
	if err != nil {
		return fail(err)
	}
	return toJSON(ids)
}

func getSelection(this js.Value, args []js.Value) interface{} {
	return toJSON(eng.Selection())
}

func getSelectionBounds(this js.Value, args []js.Value) interface{} {
	return toJSON(eng.SelectionBounds())
}

func getStates(this js.Value, args []js.Value) interface{} {
	return toJSON(eng.States())
}

func getWarnings(this js.Value, args []js.Value) interface{} {
	return toJSON(eng.Warnings())
}

func getCycle(this js.Value, args []js.Value) interface{} {
	return js.ValueOf(float64(eng.Cycle()))
}

func getGates(this js.Value, args []js.Value) interface{} {
	return toJSON(eng.Gates())
}

func getDocument(this js.Value, args []js.Value) interface{} {
	return toJSON(eng.Document())
}
