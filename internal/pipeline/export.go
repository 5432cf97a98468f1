// Copyright (c) 2026 WSO2 LLC. (https://www.wso2.com).
//
// WSO2 LLC. licenses this file to you under the Apache License,
// Version 2.0 (the "License"); you may not use this file except
// in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing,
// software distributed under the License is distributed on an
// "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY
// KIND, either express or implied.  See the License for the
// specific language governing permissions and limitations
// under the License.

package pipeline

import (
	"bytes"
	"errors"
	"fmt"
	"image/png"
)

// ErrExport is returned when there is no surface to export or it cannot be serialized.
var ErrExport = errors.New("pipeline: export failure")

// ExportFilename is the suggested download name for exported surfaces.
const ExportFilename = "qr-code.png"

var pngEncoder = png.Encoder{CompressionLevel: png.BestCompression}

// EncodePNG serializes s as a PNG byte stream.
func EncodePNG(s *Surface) ([]byte, error) {
	if s == nil || s.Image == nil {
		return nil, fmt.Errorf("%w: nothing rendered yet", ErrExport)
	}
	var buf bytes.Buffer
	if err := pngEncoder.Encode(&buf, s.Image); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExport, err)
	}
	return buf.Bytes(), nil
}
