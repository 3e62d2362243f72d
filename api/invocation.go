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
	"reflect"

	uuid "github.com/gofrs/uuid/v5"
)

// Invocation describes a single call: method name, parameter types and
// arguments in order, and a set of attachments carried alongside the call
// (tracing ids, timeouts, auth tokens). It is immutable for the duration of
// the call it represents.
type Invocation interface {
	ID() string
	MethodName() string
	ParameterTypes() []reflect.Type
	Arguments() []interface{}
	Attachments() map[string]string
	Attachment(key, def string) string
}

type invocation struct {
	id              string
	methodName      string
	parameterTypes  []reflect.Type
	arguments       []interface{}
	attachments     map[string]string
}

// NewInvocation builds an Invocation with a fresh id. attachments may be
// nil; it is copied so the caller cannot mutate the invocation afterwards.
func NewInvocation(methodName string, parameterTypes []reflect.Type, arguments []interface{}, attachments map[string]string) Invocation {
	id, err := uuid.NewV4()
	idStr := ""
	if err == nil {
		idStr = id.String()
	}
	cp := make(map[string]string, len(attachments))
	for k, v := range attachments {
		cp[k] = v
	}
	return &invocation{
		id:             idStr,
		methodName:     methodName,
		parameterTypes: parameterTypes,
		arguments:      arguments,
		attachments:    cp,
	}
}

func (i *invocation) ID() string                        { return i.id }
func (i *invocation) MethodName() string                { return i.methodName }
func (i *invocation) ParameterTypes() []reflect.Type     { return i.parameterTypes }
func (i *invocation) Arguments() []interface{}           { return i.arguments }
func (i *invocation) Attachments() map[string]string     { return i.attachments }
func (i *invocation) Attachment(key, def string) string {
	if v, ok := i.attachments[key]; ok {
		return v
	}
	return def
}
