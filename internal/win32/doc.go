// Package win32 holds the raw user32/gdi32/shcore/dwmapi procedures and
// structures shared by the Windows implementations of the indicator.
// Everything else in the package is only built on Windows.
package win32
