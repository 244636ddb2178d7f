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

package publish

import "maps"

// State records what one scan has published: virtual path to the real
// location it stands for. It is not safe for concurrent use; every scan
// owns its own State.
type State struct {
	published map[string]string
	byReal    map[string]string
}

// NewState creates an empty State.
func NewState() *State {
	return &State{
		published: make(map[string]string),
		byReal:    make(map[string]string),
	}
}

// Has reports whether virtualPath has been published.
func (s *State) Has(virtualPath string) bool {
	_, ok := s.published[virtualPath]
	return ok
}

// Published returns a copy of the virtual path map.
func (s *State) Published() map[string]string {
	return maps.Clone(s.published)
}

// Len returns the number of published virtual paths.
func (s *State) Len() int {
	return len(s.published)
}

// virtualPathOf returns the virtual path a real location was published at.
func (s *State) virtualPathOf(location string) (string, bool) {
	vp, ok := s.byReal[location]
	return vp, ok
}

func (s *State) record(virtualPath, location string) {
	s.published[virtualPath] = location
	s.byReal[location] = virtualPath
}
