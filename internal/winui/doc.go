// Package winui runs the Win32 message loop that serves as the UI thread.
package winui
