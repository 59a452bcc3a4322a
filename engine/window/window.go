package window

import (
	"fmt"

	"github.com/Carmen-Shannon/oxy-bench/common"
	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
)

// Window provides platform windowing and input event handling for the benchmark host.
// Wraps platform-specific window implementations with a common interface.
type Window interface {
	// SetResizeCallback sets the function called when the framebuffer is resized.
	//
	// Parameters:
	//   - callback: function receiving new width and height in pixels
	SetResizeCallback(callback func(width, height int))

	// SetKeyDownCallback sets the callback for key press events.
	//
	// Parameters:
	//   - callback: function receiving the virtual key code
	SetKeyDownCallback(callback func(keyCode uint32))

	// SetTitle replaces the text in the title bar.
	//
	// Parameters:
	//   - title: the new title
	SetTitle(title string)

	// SurfaceDescriptor returns a wgpu.SurfaceDescriptor suitable for creating a WebGPU surface.
	// The descriptor is platform-appropriate (Windows HWND, X11 Xlib, Wayland, macOS Metal, etc.)
	// and is created by the wgpuglfw bridge from the underlying GLFW window.
	//
	// Returns:
	//   - *wgpu.SurfaceDescriptor: the platform-specific surface descriptor, or nil if window is not initialized
	SurfaceDescriptor() *wgpu.SurfaceDescriptor

	// PollEvents processes pending window events without blocking, firing the registered callbacks.
	PollEvents()

	// ShouldClose returns true once the user asked to close the window.
	//
	// Returns:
	//   - bool: true if the window should close
	ShouldClose() bool

	// Close closes the window and releases platform resources.
	//
	// Returns:
	//   - error: error if close operation fails
	Close() error

	// Width returns the current framebuffer width in pixels.
	//
	// Returns:
	//   - int: width in pixels
	Width() int

	// Height returns the current framebuffer height in pixels.
	//
	// Returns:
	//   - int: height in pixels
	Height() int
}

// sizeLimits bounds interactive resizing in screen coordinates.
type sizeLimits struct {
	minWidth, minHeight int
	maxWidth, maxHeight int
}

// engineWindow is the implementation of the Window interface.
type engineWindow struct {
	title  string
	limits sizeLimits

	// width and height track the framebuffer, not the window, so they are already in pixels
	width  int
	height int

	// native is nil until the platform window is open and again after Close
	native *glfwWindow

	onResize  func(width, height int)
	onKeyDown func(keyCode uint32)
}

var _ Window = &engineWindow{}

// NewWindow creates and shows a new Window with the specified options.
// Applies default values first, then each option in order.
//
// Parameters:
//   - options: functional options to configure the window
//
// Returns:
//   - Window: the open window
//   - error: error if the platform window could not be created
func NewWindow(options ...WindowBuilderOption) (Window, error) {
	w := &engineWindow{
		title:  "Triangles",
		limits: sizeLimits{minWidth: 320, minHeight: 240, maxWidth: 3840, maxHeight: 2160},
		width:  1280,
		height: 720,
	}
	for _, opt := range options {
		opt(w)
	}
	native, err := openGLFWWindow(w)
	if err != nil {
		return nil, fmt.Errorf("failed to create platform window: %w", err)
	}
	w.native = native
	return w, nil
}

func (w *engineWindow) SetResizeCallback(callback func(width, height int)) {
	w.onResize = callback
}

func (w *engineWindow) SetKeyDownCallback(callback func(keyCode uint32)) {
	w.onKeyDown = callback
}

func (w *engineWindow) SetTitle(title string) {
	w.title = title
	if w.native != nil {
		w.native.window.SetTitle(title)
	}
}

func (w *engineWindow) SurfaceDescriptor() *wgpu.SurfaceDescriptor {
	if w.native == nil {
		return nil
	}
	return wgpuglfw.GetSurfaceDescriptor(w.native.window)
}

func (w *engineWindow) PollEvents() {
	if w.native != nil {
		glfw.PollEvents()
	}
}

func (w *engineWindow) ShouldClose() bool {
	return w.native == nil || w.native.closing || w.native.window.ShouldClose()
}

func (w *engineWindow) Close() error {
	if w.native == nil {
		return fmt.Errorf("window is not open")
	}
	w.native.destroy()
	w.native = nil
	return nil
}

// dispatchKey forwards presses to the key callback. Arrow keys also forward GLFW auto-repeat so
// holding one keeps stepping the instance count.
func (w *engineWindow) dispatchKey(key glfw.Key, action glfw.Action) {
	if w.onKeyDown == nil {
		return
	}
	switch action {
	case glfw.Press:
		w.onKeyDown(uint32(key))
	case glfw.Repeat:
		if isArrowKey(uint32(key)) {
			w.onKeyDown(uint32(key))
		}
	}
}

func isArrowKey(code uint32) bool {
	switch code {
	case common.KeyUp, common.KeyDown, common.KeyLeft, common.KeyRight:
		return true
	}
	return false
}

func (w *engineWindow) Width() int {
	return w.width
}

func (w *engineWindow) Height() int {
	return w.height
}
