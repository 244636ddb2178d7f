/*
Copyright © 2026 Benny Powers <web@bennypowers.com>

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program. If not, see <http://www.gnu.org/licenses/>.
*/

package output

import (
	"fmt"
	"io"
	"sync"

	"github.com/fatih/color"
)

var (
	errorLabel   = color.New(color.FgRed, color.Bold).SprintFunc()
	warningLabel = color.New(color.FgYellow, color.Bold).SprintFunc()
	infoLabel    = color.New(color.FgCyan).SprintFunc()
	debugLabel   = color.New(color.Faint).SprintFunc()
)

// Logger writes levelled messages, one per line. Info and Debug messages
// are dropped unless verbose. Safe for concurrent use.
type Logger struct {
	mu      sync.Mutex
	w       io.Writer
	verbose bool
}

// NewLogger creates a Logger writing to w.
func NewLogger(w io.Writer, verbose bool) *Logger {
	return &Logger{w: w, verbose: verbose}
}

func (l *Logger) Error(format string, args ...any) {
	l.print(errorLabel("error"), format, args...)
}

func (l *Logger) Warning(format string, args ...any) {
	l.print(warningLabel("warning"), format, args...)
}

func (l *Logger) Info(format string, args ...any) {
	if l.verbose {
		l.print(infoLabel("info"), format, args...)
	}
}

func (l *Logger) Debug(format string, args ...any) {
	if l.verbose {
		l.print(debugLabel("debug"), format, args...)
	}
}

func (l *Logger) print(label, format string, args ...any) {
	l.mu.Lock()
	defer l.mu.Unlock()
	fmt.Fprintf(l.w, "%s: %s\n", label, fmt.Sprintf(format, args...))
}
