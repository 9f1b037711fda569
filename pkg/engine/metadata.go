package engine

import (
	"fmt"
	"strings"

	"github.com/sdejongh/semcmp/pkg/models"
	"github.com/sdejongh/semcmp/pkg/storage"
)

// compareMetadata compares the archive headers of two members. Entries
// without a header (filesystem paths, decompressed streams) always match.
// Modification times are never compared.
func compareMetadata(left, right *storage.Entry) models.Verdict {
	lm, rm := left.Member(), right.Member()
	if lm == nil || rm == nil {
		return models.Equal("")
	}

	var diffs []string
	if lm.Mode != rm.Mode {
		diffs = append(diffs, fmt.Sprintf("mode %s vs %s", lm.Mode, rm.Mode))
	}
	if lm.Uid != rm.Uid {
		diffs = append(diffs, fmt.Sprintf("uid %d vs %d", lm.Uid, rm.Uid))
	}
	if lm.Gid != rm.Gid {
		diffs = append(diffs, fmt.Sprintf("gid %d vs %d", lm.Gid, rm.Gid))
	}
	if lm.Uname != rm.Uname {
		diffs = append(diffs, fmt.Sprintf("owner %q vs %q", lm.Uname, rm.Uname))
	}
	if lm.Gname != rm.Gname {
		diffs = append(diffs, fmt.Sprintf("group %q vs %q", lm.Gname, rm.Gname))
	}
	if lm.LinkTarget() != rm.LinkTarget() {
		diffs = append(diffs, fmt.Sprintf("link %q vs %q", lm.LinkTarget(), rm.LinkTarget()))
	}

	if len(diffs) == 0 {
		return models.Equal("")
	}
	return models.Unequal(models.ReasonMetadataMismatch, "%s", strings.Join(diffs, ", "))
}
