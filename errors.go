// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package dqp

import "fmt"

// InvalidInputError reports a malformed Model at Setup/Update time:
// dimension mismatches or l[i] > u[i]. Settings and the semidefiniteness
// of H are not checked.
type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("dqp: invalid input: %s", e.Reason)
}

func invalidInput(format string, a ...any) error {
	return &InvalidInputError{Reason: fmt.Sprintf(format, a...)}
}
