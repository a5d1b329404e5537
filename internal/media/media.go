package media

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"photolog-backend/internal/models"
	"photolog-backend/internal/permissions"
)

// ErrPermissionDenied means the required camera or storage permission was refused
var ErrPermissionDenied = errors.New("media permission denied")

// Kind tags a picker outcome
type Kind int

const (
	// Cancelled means the user dismissed the picker
	Cancelled Kind = iota
	// Failed means the picker reported an error
	Failed
	// Selected means the picker produced a usable media item
	Selected
)

// Result is the tagged outcome of one picker invocation. Only Selected
// carries a LocalURI and continues the capture pipeline.
type Result struct {
	Kind     Kind
	Message  string
	LocalURI string
}

// Interpret maps a raw picker response to a Result. Only a non-empty assets
// list with a usable uri counts as a selection.
func Interpret(resp models.PickerResponse) Result {
	switch {
	case resp.Cancelled:
		return Result{Kind: Cancelled}
	case resp.ErrorCode != "":
		msg := resp.ErrorMessage
		if msg == "" {
			msg = resp.ErrorCode
		}
		return Result{Kind: Failed, Message: msg}
	case len(resp.Assets) > 0 && strings.TrimSpace(resp.Assets[0].URI) != "":
		return Result{Kind: Selected, LocalURI: resp.Assets[0].URI}
	default:
		return Result{Kind: Failed, Message: "picker returned no assets"}
	}
}

// PickerOptions mirror the options the client passes to its media pickers
type PickerOptions struct {
	MediaType     string
	MaxWidth      int
	MaxHeight     int
	IncludeBase64 bool
}

// DefaultPickerOptions returns the options used for photo capture
func DefaultPickerOptions() PickerOptions {
	return PickerOptions{MediaType: "photo", MaxWidth: 2000, MaxHeight: 2000}
}

// Picker launches the device camera or media library and reports the outcome
type Picker interface {
	LaunchCamera(ctx context.Context, opts PickerOptions) (models.PickerResponse, error)
	LaunchLibrary(ctx context.Context, opts PickerOptions) (models.PickerResponse, error)
}

// Acquirer wraps a Picker behind the permission checks each entry point needs
type Acquirer struct {
	picker Picker
	perms  permissions.Service
	opts   PickerOptions
}

// NewAcquirer creates an Acquirer with the default picker options
func NewAcquirer(picker Picker, perms permissions.Service) *Acquirer {
	return &Acquirer{picker: picker, perms: perms, opts: DefaultPickerOptions()}
}

// CaptureFromCamera requests camera permission and launches the camera
func (a *Acquirer) CaptureFromCamera(ctx context.Context) (Result, error) {
	granted, err := a.perms.Request(ctx, permissions.Camera)
	if err != nil {
		return Result{}, fmt.Errorf("failed to request camera permission: %w", err)
	}
	if !granted {
		return Result{}, ErrPermissionDenied
	}

	resp, err := a.picker.LaunchCamera(ctx, a.opts)
	if err != nil {
		return Result{}, fmt.Errorf("failed to launch camera: %w", err)
	}
	return Interpret(resp), nil
}

// PickFromLibrary launches the media library, requesting storage permission
// if it is not already granted
func (a *Acquirer) PickFromLibrary(ctx context.Context) (Result, error) {
	granted, err := a.perms.Check(ctx, permissions.Storage)
	if err != nil {
		return Result{}, fmt.Errorf("failed to check storage permission: %w", err)
	}
	if !granted {
		granted, err = a.perms.Request(ctx, permissions.Storage)
		if err != nil {
			return Result{}, fmt.Errorf("failed to request storage permission: %w", err)
		}
	}
	if !granted {
		return Result{}, ErrPermissionDenied
	}

	resp, err := a.picker.LaunchLibrary(ctx, a.opts)
	if err != nil {
		return Result{}, fmt.Errorf("failed to launch media library: %w", err)
	}
	return Interpret(resp), nil
}
