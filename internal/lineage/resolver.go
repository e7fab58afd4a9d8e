// Package lineage resolves a proposal submission against the full row
// history: which version it becomes, which project number it belongs to,
// and which prior rows need their status rewritten.
package lineage

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/MaykerCreative/mayker-proposals/internal/store"
)

// Version suffix convention: "Acme Corp (V3)" is version 3 of the lineage
// "Acme Corp"; an unsuffixed name is version 1.
var versionSuffix = regexp.MustCompile(`\s*\(V(\d+)\)\s*$`)

// BaseName strips a trailing " (V<n>)" suffix from a client name.
func BaseName(clientName string) string {
	return strings.TrimSpace(versionSuffix.ReplaceAllString(strings.TrimSpace(clientName), ""))
}

// rowVersion reports whether the row's client name belongs to the lineage
// and, if so, which version it is (0 when the name matches the prefix but
// carries no recognizable version). Matching is by prefix on the base name,
// which is the historical behavior (see design notes on false positives).
func rowVersion(name, base string) (version int, matches bool) {
	name = strings.TrimSpace(name)
	if !strings.HasPrefix(name, base) {
		return 0, false
	}
	if m := versionSuffix.FindStringSubmatch(name); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil && v > 0 {
			return v, true
		}
		return 0, true
	}
	if name == base {
		return 1, true
	}
	return 0, true
}

// StatusUpdate is one status-cell rewrite on an existing row.
type StatusUpdate struct {
	RowID  int64
	Status string
}

// Resolution is the outcome of reconciling a submission with history.
type Resolution struct {
	BaseName      string
	Version       int
	ClientName    string // display name for the new row
	ProjectNumber string
	StatusUpdates []StatusUpdate
}

// Resolve scans the full proposal history for prior versions of the
// submitted client name and decides the new row's version number, display
// name and project number, plus any status propagation to sibling versions.
//
// Project number precedence: recovered from history (the first version-1
// row, else the first matching row), then the client-supplied value, then a
// freshly generated global counter value.
//
// Status propagation: Pending and Cancelled are lineage-wide, so when the
// requested status differs from the one stored on the highest existing
// version, every prior version is rewritten. Approved is terminal and
// version-specific and never propagates.
func Resolve(rows []store.ProposalRow, clientName, requestedStatus, suppliedProjectNumber string) Resolution {
	base := BaseName(clientName)

	versionRows := make(map[int]store.ProposalRow)
	highest := 0
	projectNumber := ""
	fallbackProjectNumber := ""

	for _, row := range rows {
		version, matches := rowVersion(row.ClientName, base)
		if !matches {
			continue
		}
		if fallbackProjectNumber == "" {
			fallbackProjectNumber = strings.TrimSpace(row.ProjectNumber)
		}
		if version == 0 {
			continue
		}
		if version == 1 && projectNumber == "" {
			projectNumber = strings.TrimSpace(row.ProjectNumber)
		}
		versionRows[version] = row
		if version > highest {
			highest = version
		}
	}

	if projectNumber == "" {
		projectNumber = fallbackProjectNumber
	}
	if projectNumber == "" {
		projectNumber = strings.TrimSpace(suppliedProjectNumber)
	}
	if projectNumber == "" {
		projectNumber = NextProjectNumber(rows)
	}

	resolution := Resolution{
		BaseName:      base,
		Version:       highest + 1,
		ProjectNumber: projectNumber,
	}
	if resolution.Version == 1 {
		resolution.ClientName = base
	} else {
		resolution.ClientName = fmt.Sprintf("%s (V%d)", base, resolution.Version)
	}

	if highest > 0 && propagates(requestedStatus) {
		if latest, ok := versionRows[highest]; ok && latest.Status != requestedStatus {
			for v := 1; v <= highest; v++ {
				row, ok := versionRows[v]
				if !ok || row.Status == requestedStatus {
					continue
				}
				resolution.StatusUpdates = append(resolution.StatusUpdates, StatusUpdate{
					RowID:  row.ID,
					Status: requestedStatus,
				})
			}
		}
	}

	return resolution
}

func propagates(status string) bool {
	return status == "Pending" || status == "Cancelled"
}

// NextProjectNumber scans the project-number column of the entire table,
// takes the numeric maximum and returns max+1 zero padded to four digits.
// Non-numeric values are ignored. The counter is global across lineages;
// there is no reservation, so concurrent submissions can collide (a known
// gap, inherited from the original numbering scheme).
func NextProjectNumber(rows []store.ProposalRow) string {
	max := 0
	for _, row := range rows {
		n, err := strconv.Atoi(strings.TrimSpace(row.ProjectNumber))
		if err != nil {
			continue
		}
		if n > max {
			max = n
		}
	}
	return fmt.Sprintf("%04d", max+1)
}
