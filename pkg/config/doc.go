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
Package config loads sortrc settings from YAML, HCL or JSON files.

	            +-------------+
	            |   Config    |
	            +------+------+
	                   |
	      +------------+------------+
	      |            |            |
	+-----+----+ +-----+----+ +-----+----+
	|   YAML   | |   HCL    | |   JSON   |
	+----------+ +----------+ +----------+

Parsers register themselves by file extension. Load picks the parser, decodes
the file (unknown fields are rejected) and runs Validate, which fills in
defaults:

	cpu_workers     runtime.NumCPU()
	io_limit        256
	cpu_extensions  [zip, rar]
	lock            true

HCL files can use num_cpu in expressions:

	cpu_workers    = num_cpu * 2
	cpu_extensions = ["zip", "rar", "7z"]

	rule {
	  pattern = "images/**"
	  class   = "cpu"
	}

🔍 Example:

	cfg, err := config.Load(ctx, "sortrc.yaml")
	if err != nil {
		return err
	}
	classifier, err := cfg.Classifier()
*/
package config
