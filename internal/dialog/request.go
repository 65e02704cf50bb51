package dialog

import "context"

type ctxKey int

const (
	confirmKey ctxKey = iota
	savePathKey
	notesKey
)

// WithConfirmation attaches the user's answer to a pending confirmation.
// Transports that collect the answer up front (an HTTP header, a tool
// argument) use it together with RequestConfirmer.
func WithConfirmation(ctx context.Context, accepted bool) context.Context {
	return context.WithValue(ctx, confirmKey, accepted)
}

// WithSavePath attaches the path the user chose for a new note.
func WithSavePath(ctx context.Context, path string) context.Context {
	return context.WithValue(ctx, savePathKey, path)
}

// WithNotifications attaches a sink that collects messages raised by
// RequestNotifier so the transport can return them to the caller.
func WithNotifications(ctx context.Context, sink *[]string) context.Context {
	return context.WithValue(ctx, notesKey, sink)
}

// RequestConfirmer reads the answer from the context, falling back to
// Fallback (or "declined") when the request carried none.
type RequestConfirmer struct {
	Fallback Confirmer
}

// Confirm implements Confirmer.
func (r RequestConfirmer) Confirm(ctx context.Context, message string) (bool, error) {
	if v, ok := ctx.Value(confirmKey).(bool); ok {
		return v, nil
	}
	if r.Fallback != nil {
		return r.Fallback.Confirm(ctx, message)
	}
	return false, nil
}

// RequestPicker answers save-path requests from the context. A request with
// no path cancels.
type RequestPicker struct{}

// PickSavePath implements SavePathPicker.
func (RequestPicker) PickSavePath(ctx context.Context, _ string) (string, bool, error) {
	p, _ := ctx.Value(savePathKey).(string)
	return p, p != "", nil
}

// RequestNotifier appends to the sink attached by WithNotifications and
// forwards to Next.
type RequestNotifier struct {
	Next Notifier
}

// NotifyError implements Notifier.
func (r RequestNotifier) NotifyError(ctx context.Context, message string) {
	if sink, ok := ctx.Value(notesKey).(*[]string); ok && sink != nil {
		*sink = append(*sink, message)
	}
	if r.Next != nil {
		r.Next.NotifyError(ctx, message)
	}
}
