/*
 * Copyright 2026 The RuleGo Authors.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package api

import (
	"log"
	"os"
)

// Logger is the narrow logging surface the pipeline depends on. Any logger
// that can format and write a line satisfies it; the concrete backend
// (structured, leveled, or otherwise) is an external concern the core does
// not prescribe.
type Logger interface {
	Printf(format string, v ...interface{})
}

// this is a safeguard, breaking at compile time in case log.Logger stops
// satisfying our Logger interface.
var _ Logger = &log.Logger{}

// DefaultLogger returns the fallback Logger used when a Config does not
// supply its own.
func DefaultLogger() *log.Logger {
	return log.New(os.Stdout, "", log.LstdFlags)
}

// NewLogger returns custom if non-nil, otherwise DefaultLogger().
func NewLogger(custom Logger) Logger {
	if custom != nil {
		return custom
	}
	return DefaultLogger()
}
