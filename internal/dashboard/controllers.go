package dashboard

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/narvanalabs/builder-dashboard/web/api"
)

// Validation messages shown without contacting the backend.
const (
	MsgInvalidPayload = "Payload must be valid JSON"
	MsgNameRequired   = "Name is required"
)

// ExecuteForm triggers executions from the execute form.
type ExecuteForm struct {
	doc     Document
	api     API
	refresh []Poller
	logger  *slog.Logger
}

// Bind attaches Submit to #execute-btn. It reports false when the button is absent.
func (f *ExecuteForm) Bind() bool {
	btn := f.doc.Query(SelExecuteButton)
	if btn == nil {
		return false
	}
	btn.OnClick(f.Submit)
	return true
}

// Submit validates the form, posts the execution and reports the outcome in
// #execute-notification. On success the refresh pollers run before it returns.
func (f *ExecuteForm) Submit(ctx context.Context) {
	notification := f.doc.Query(SelExecuteNotification)
	HideNotification(notification)

	req := api.ExecuteRequest{
		BuilderID: valueOf(f.doc, SelBuilderSelect),
		Backend:   valueOf(f.doc, SelBackendSelect),
		Payload:   json.RawMessage("{}"),
	}
	if text := strings.TrimSpace(valueOf(f.doc, SelPayload)); text != "" {
		if !json.Valid([]byte(text)) {
			ShowNotification(notification, MsgInvalidPayload, SeverityDanger)
			return
		}
		req.Payload = json.RawMessage(text)
	}

	execution, err := f.api.Execute(ctx, req)
	if err != nil {
		f.logger.Info("execution request failed", "builder_id", req.BuilderID, "backend", req.Backend, "error", err)
		ShowNotification(notification, err.Error(), SeverityDanger)
		return
	}

	ShowNotification(notification, "Execution "+execution.ID+" started", SeveritySuccess)
	for _, p := range f.refresh {
		p.Poll(ctx)
	}
}

// BuilderForm registers builders from the builder form.
type BuilderForm struct {
	doc     Document
	api     API
	refresh []Poller
	logger  *slog.Logger
}

// Bind attaches Submit to #register-builder. It reports false when the button is
// absent.
func (f *BuilderForm) Bind() bool {
	btn := f.doc.Query(SelRegisterButton)
	if btn == nil {
		return false
	}
	btn.OnClick(f.Submit)
	return true
}

// Submit validates the form, registers the builder and reports the outcome in
// #builder-notification.
func (f *BuilderForm) Submit(ctx context.Context) {
	notification := f.doc.Query(SelBuilderNotification)
	HideNotification(notification)

	name := strings.TrimSpace(valueOf(f.doc, SelBuilderName))
	description := strings.TrimSpace(valueOf(f.doc, SelBuilderDescription))
	if name == "" {
		ShowNotification(notification, MsgNameRequired, SeverityDanger)
		return
	}

	builder, err := f.api.RegisterBuilder(ctx, api.RegisterBuilderRequest{
		Name:        name,
		Description: description,
	})
	if err != nil {
		f.logger.Info("builder registration failed", "name", name, "error", err)
		ShowNotification(notification, err.Error(), SeverityDanger)
		return
	}

	ShowNotification(notification, "Builder "+builder.Name+" created", SeveritySuccess)
	for _, p := range f.refresh {
		p.Poll(ctx)
	}
}

func valueOf(doc Document, selector string) string {
	if el := doc.Query(selector); el != nil {
		return el.Value()
	}
	return ""
}
