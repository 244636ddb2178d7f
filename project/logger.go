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

package project

// Logger is an interface for logging messages during a scan.
type Logger interface {
	Error(format string, args ...any)
	Warning(format string, args ...any)
	Info(format string, args ...any)
	Debug(format string, args ...any)
}

// NopLogger discards everything.
type NopLogger struct{}

func (NopLogger) Error(string, ...any)   {}
func (NopLogger) Warning(string, ...any) {}
func (NopLogger) Info(string, ...any)    {}
func (NopLogger) Debug(string, ...any)   {}

// OrNop returns logger, or a NopLogger when logger is nil.
func OrNop(logger Logger) Logger {
	if logger == nil {
		return NopLogger{}
	}
	return logger
}
