package preflight

import (
	"os/exec"
	"sort"
	"strings"

	"github.com/go-logr/logr"
	"github.com/thepwagner/clrm/errdefs"
)

// Check verifies every binary is on the host PATH.
func Check(log logr.Logger, binaries ...string) error {
	var missing []string
	for _, b := range binaries {
		p, err := exec.LookPath(b)
		if err != nil {
			missing = append(missing, b)
			continue
		}
		log.V(1).Info("found tool", "tool", b, "path", p)
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return errdefs.Preflight("missing tools: %s", strings.Join(missing, ", "))
	}
	return nil
}
