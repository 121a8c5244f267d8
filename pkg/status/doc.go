// Copyright 2025 walteh LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

/*
Package status counts the outcomes of a sort run and reports progress while
the run is in flight.

	+-------------+   TrackOutcome   +-------------+
	|  aggregate  | ---------------> |   Manager   |
	+-------------+                  +------+------+
	                                        |
	                                  zerolog events
	                                  (progress, per file)

🎯 Purpose:
- Counts copied and failed files as outcomes arrive
- Emits progress lines through the context logger

🤝 Interfaces:
- Reporter: what the aggregator talks to
- FileFormatter: turns statuses and progress into messages

The Manager is safe for concurrent use and outcomes can arrive in any order.
*/
package status
