package window

import (
	"fmt"
	"runtime"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// glfwWindow is the open GLFW window behind an engineWindow.
type glfwWindow struct {
	window  *glfw.Window
	closing bool
}

// openGLFWWindow initializes GLFW and opens a window without a client API, since the surface is
// driven by WebGPU. GLFW must stay on the thread that called this for the life of the window.
//
// Reference: https://www.glfw.org/docs/latest/window_guide.html#window_hints_ctx
func openGLFWWindow(w *engineWindow) (*glfwWindow, error) {
	runtime.LockOSThread()

	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}
	glfw.WindowHint(glfw.ClientAPI, glfw.NoAPI)

	win, err := glfw.CreateWindow(w.width, w.height, w.title, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("failed to create GLFW window: %w", err)
	}
	win.SetSizeLimits(w.limits.minWidth, w.limits.minHeight, w.limits.maxWidth, w.limits.maxHeight)

	gw := &glfwWindow{window: win}

	win.SetKeyCallback(func(_ *glfw.Window, key glfw.Key, _ int, action glfw.Action, _ glfw.ModifierKey) {
		if key == glfw.KeyEscape && action == glfw.Press {
			gw.closing = true
			win.SetShouldClose(true)
			return
		}
		w.dispatchKey(key, action)
	})

	// High-DPI displays report a framebuffer larger than the window; the surface needs pixels.
	win.SetFramebufferSizeCallback(func(_ *glfw.Window, width, height int) {
		w.width, w.height = width, height
		if w.onResize != nil {
			w.onResize(width, height)
		}
	})
	w.width, w.height = win.GetFramebufferSize()

	return gw, nil
}

func (gw *glfwWindow) destroy() {
	gw.closing = true
	gw.window.Destroy()
	glfw.Terminate()
}
