// Copyright (c) 2025 Z5Labs and Contributors
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package rest

import "path"

// Path is a route made of static segments.
type Path []string

// BasePath starts a Path.
func BasePath(s string) Path {
	return Path{s}
}

// Segment appends a segment.
func (p Path) Segment(s string) Path {
	return append(p[:len(p):len(p)], s)
}

func (p Path) String() string {
	return path.Join(append([]string{"/"}, p...)...)
}
