/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package storage keeps the derived SQLite index of a Dink project at <project>/.dinkwriter/index.sqlite.
// It holds the beats of the latest parse with a full-text index for search, and timestamped
// snapshots of the parsed structure that later parses reconcile snippet ids against.
// The index is rebuilt from the .ink sources at any time and may be deleted freely.
package storage
