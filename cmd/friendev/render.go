package main

import (
	"github.com/LikeEpieiKeia216/Friendev/internal/llm"
	"github.com/LikeEpieiKeia216/Friendev/internal/tools"
	"github.com/LikeEpieiKeia216/Friendev/internal/ui"
)

// renderer shows agent turns on the console.
type renderer struct {
	printer *ui.StreamPrinter
	display *ui.ToolCallDisplay
	console *ui.Console
}

func (r *renderer) StreamEvent(ev llm.StreamEvent) {
	r.printer.Handle(ev)
}

func (r *renderer) StreamDone(result *llm.TurnResult, err error) {
	if err != nil {
		r.printer.Reset()
		r.display.Reset()
		return
	}
	r.printer.Done()
	if result.Truncated() {
		r.display.Reset()
		r.console.Println(ui.Warn("Tool call arguments arrived incomplete; the model was asked to retry in smaller chunks."))
	}
}

func (r *renderer) ToolFinished(call llm.ToolCall, res tools.Result) {
	r.display.Finish(call, res.Success, res.Brief)
}
