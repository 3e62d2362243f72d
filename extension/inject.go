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

package extension

import "reflect"

// inject performs setter-based dependency injection on inst: every exported
// method named SetXxx, taking exactly one non-primitive argument and
// returning at most one value, is called with a dependency resolved either as the
// default extension for an interface argument, or via the registry's
// ObjectFactory. Methods the instance lists via NoInject are skipped, and
// any dependency that cannot be resolved is left unset rather than erroring
// — matching the teacher's tolerant field/setter injection.
func (r *Registry) inject(inst interface{}) {
	v := reflect.ValueOf(inst)
	if v.Kind() != reflect.Ptr || v.IsNil() {
		return
	}

	skip := map[string]bool{}
	if di, ok := inst.(NoInject); ok {
		for _, name := range di.DisableInject() {
			skip[name] = true
		}
	}

	t := v.Type()
	for i := 0; i < t.NumMethod(); i++ {
		m := t.Method(i)
		if len(m.Name) <= 3 || m.Name[:3] != "Set" {
			continue
		}
		if skip[m.Name] {
			continue
		}
		// m.Type is the method's func signature including the receiver.
		if m.Type.NumIn() != 2 || m.Type.NumOut() > 1 {
			continue
		}
		argType := m.Type.In(1)
		if isPrimitiveKind(argType.Kind()) {
			continue
		}
		dep, ok := r.resolveDependency(argType)
		if !ok {
			continue
		}
		v.Method(i).Call([]reflect.Value{reflect.ValueOf(dep)})
	}
}

func (r *Registry) resolveDependency(argType reflect.Type) (interface{}, bool) {
	if argType.Kind() == reflect.Interface {
		if dep, err := r.GetDefaultExtension(argType.Name()); err == nil {
			if reflect.TypeOf(dep).Implements(argType) {
				return dep, true
			}
		}
	}
	r.mu.RLock()
	factory := r.objectFactory
	r.mu.RUnlock()
	if factory != nil {
		return factory.GetObject(argType.Name())
	}
	return nil, false
}

func isPrimitiveKind(k reflect.Kind) bool {
	switch k {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64,
		reflect.String:
		return true
	default:
		return false
	}
}
