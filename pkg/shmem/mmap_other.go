//go:build !(linux || darwin)

/*
 * Copyright 2025 Carver Automation Corporation.
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

package shmem

import "os"

func mapInput(*os.File, int) ([]byte, error)  { return nil, ErrUnsupported }
func mapOutput(*os.File, int) ([]byte, error) { return nil, ErrUnsupported }
func syncMapping([]byte) error                { return ErrUnsupported }
func unmap([]byte) error                      { return nil }
