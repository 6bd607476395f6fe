package converter

import (
	"fmt"
	"strconv"
)

// BuildArgs maps validated options to the ordered chordpro flag list that
// follows the fixed input-path and output-path tokens. The sequence is
// deterministic for identical inputs: transpose, then meta pairs in
// insertion order, then configs in list order, then the diagrams toggle.
func BuildArgs(format Format, opts Options) ([]string, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFormat, string(format))
	}

	var args []string

	if opts.Transpose != nil {
		args = append(args, "--transpose", strconv.Itoa(*opts.Transpose))
	}

	for _, entry := range opts.Meta {
		args = append(args, "--meta", entry.Key+"="+entry.Value)
	}

	for _, cfg := range opts.Configs {
		args = append(args, "--config", cfg)
	}

	if opts.Diagrams != nil {
		if *opts.Diagrams {
			args = append(args, "--diagrams")
		} else {
			args = append(args, "--no-diagrams")
		}
	}

	return args, nil
}
