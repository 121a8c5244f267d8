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
Package operation runs one complete sort: pre-flight checks, dispatch,
aggregation and teardown.

	+-------------+     +------------+     +-----------+
	|  pre-flight | --> |  dispatch  | --> | aggregate |
	| source/lock |     | walk+route |     | AwaitAll  |
	+-------------+     +-----+------+     +-----+-----+
	                          |                  |
	                +---------+--------+         |
	                |                  |         |
	          +-----+----+      +------+---+     |
	          |  IOPool  |      | CPUPool  | ----+
	          +----------+      +----------+

🔄 Flow:
 1. Validate the source root (fatal InvalidSourceError)
 2. Create the destination root and take destination/.sortrc.lock
 3. Build the classifier and both pools from config
 4. Dispatch every regular file, never waiting on a task
 5. Await every handle, shut the pools down, release the lock

Only steps 1 to 3 can fail the run. Every failure after dispatch is a
per-file outcome in the returned report.

🔍 Example:

	cfg := config.Default()
	cfg.Source, cfg.Destination = "/mnt/in", "/mnt/sorted"
	report, err := operation.Sort(ctx, operation.Options{Config: cfg})
	if err != nil {
		return err
	}
	for _, o := range report.Failed {
		fmt.Println(o.SourcePath, o.Err)
	}
*/
package operation
