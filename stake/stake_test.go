// Copyright 2019 The onyx-go Authors
// This file is part of the onyx-go library.
//
// The onyx-go library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The onyx-go library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the onyx-go library. If not, see <http://www.gnu.org/licenses/>.

package stake

import (
	"errors"
	"testing"
)

func TestIsNoStakeError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, false},
		{errors.New("connection refused"), false},
		{errors.New("No stake found"), true},
		{errors.New("pss: No stake found for key 0x1234"), true},
		{errors.New("no stake found"), false}, // node errors use this exact casing
	}
	for _, tt := range tests {
		if got := IsNoStakeError(tt.err); got != tt.want {
			t.Errorf("IsNoStakeError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
