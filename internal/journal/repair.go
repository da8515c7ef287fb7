package journal

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cleared-dev/libro/internal/apperr"
	"github.com/cleared-dev/libro/internal/auth"
	"github.com/cleared-dev/libro/internal/model"
	"github.com/cleared-dev/libro/internal/store"
)

// RepairChange records one movement flipped by Repair, enough to undo it.
type RepairChange struct {
	Index  int
	Before model.Movement
	After  model.Movement
}

// RepairCandidates returns movements on expense or investment accounts that
// were recorded on the credit side.
func (j *Journal) RepairCandidates() []Entry {
	return j.filter(model.Movement.IsRepairCandidate)
}

// Diagnose returns a DataRepairCandidate error naming the documents that
// Repair would change, or nil when there are none.
func (j *Journal) Diagnose() error {
	cands := j.RepairCandidates()
	if len(cands) == 0 {
		return nil
	}
	docs := make([]string, len(cands))
	for i, e := range cands {
		docs[i] = e.Movement.Documento
	}
	return apperr.New(apperr.KindDataRepairCandidate, "audit",
		fmt.Sprintf("%d movement(s) on debit-side accounts recorded as haber: %s", len(cands), strings.Join(docs, ", ")))
}

// Repair swaps debe and haber on every repair candidate and negates its
// stored saldo. The returned changes can be passed to RevertRepair.
func (j *Journal) Repair(token auth.Token) ([]RepairChange, error) {
	if err := auth.Require(token, "repair journal"); err != nil {
		return nil, err
	}
	if err := j.ensureLoaded(); err != nil {
		return nil, err
	}

	var changes []RepairChange
	for i, m := range j.movements {
		if !m.IsRepairCandidate() {
			continue
		}
		fixed := m
		fixed.Debe, fixed.Haber = m.Haber, m.Debe
		fixed.Saldo = m.Saldo.Neg()
		j.movements[i] = fixed
		changes = append(changes, RepairChange{Index: i, Before: m, After: fixed})
	}
	if len(changes) == 0 {
		return nil, nil
	}
	j.logger.Info("journal repaired", "movements", len(changes))
	if err := j.commit(); err != nil {
		return changes, err
	}
	return changes, nil
}

// RevertRepair restores movements changed by Repair. A change is applied
// only if the movement at its index is still in its repaired state. Returns
// the number of movements restored.
func (j *Journal) RevertRepair(token auth.Token, changes []RepairChange) (int, error) {
	if err := auth.Require(token, "revert repair"); err != nil {
		return 0, err
	}
	if err := j.ensureLoaded(); err != nil {
		return 0, err
	}

	n := 0
	for _, c := range changes {
		cur, ok := j.At(c.Index)
		if !ok || !sameMovement(cur, c.After) {
			j.logger.Warn("repair change no longer applies, skipping", "index", c.Index, "documento", c.After.Documento)
			continue
		}
		j.movements[c.Index] = c.Before
		n++
	}
	if n == 0 {
		return 0, nil
	}
	if err := j.commit(); err != nil {
		return n, err
	}
	return n, nil
}

func sameMovement(a, b model.Movement) bool {
	return a.Fecha == b.Fecha &&
		a.Documento == b.Documento &&
		a.Concepto == b.Concepto &&
		a.Cuenta == b.Cuenta &&
		a.Debe.Equal(b.Debe) &&
		a.Haber.Equal(b.Haber) &&
		a.Moneda == b.Moneda &&
		a.Estado == b.Estado &&
		a.Banco == b.Banco &&
		a.Saldo.Equal(b.Saldo)
}

type revertFile struct {
	Journal string         `json:"diario"`
	Created string         `json:"fecha"`
	Changes []revertChange `json:"cambios"`
}

type revertChange struct {
	Index  int             `json:"indice"`
	Before json.RawMessage `json:"antes"`
	After  json.RawMessage `json:"despues"`
}

// WriteRevertFile saves changes so a later RevertRepair can undo them.
func (j *Journal) WriteRevertFile(path string, changes []RepairChange) error {
	rf := revertFile{Journal: j.path, Created: j.now().Format(model.TimestampFormat)}
	for _, c := range changes {
		before, err := json.Marshal(encode("", "", []model.Movement{c.Before}).Movimientos[0])
		if err != nil {
			return fmt.Errorf("encoding revert change: %w", err)
		}
		after, err := json.Marshal(encode("", "", []model.Movement{c.After}).Movimientos[0])
		if err != nil {
			return fmt.Errorf("encoding revert change: %w", err)
		}
		rf.Changes = append(rf.Changes, revertChange{Index: c.Index, Before: before, After: after})
	}
	return store.WriteJSON(path, rf)
}

// ReadRevertFile loads changes written by WriteRevertFile.
func ReadRevertFile(path string) ([]RepairChange, error) {
	data, ok, err := store.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.New(apperr.KindStorageRead, "reading revert file", path+" not found")
	}
	var rf revertFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, apperr.Wrap(apperr.KindStorageRead, "parsing revert file", err)
	}
	changes := make([]RepairChange, 0, len(rf.Changes))
	for i, rc := range rf.Changes {
		var before, after recordJSON
		if err := json.Unmarshal(rc.Before, &before); err != nil {
			return nil, fmt.Errorf("revert change %d: %w", i, err)
		}
		if err := json.Unmarshal(rc.After, &after); err != nil {
			return nil, fmt.Errorf("revert change %d: %w", i, err)
		}
		b, err := before.movement()
		if err != nil {
			return nil, fmt.Errorf("revert change %d: %w", i, err)
		}
		a, err := after.movement()
		if err != nil {
			return nil, fmt.Errorf("revert change %d: %w", i, err)
		}
		changes = append(changes, RepairChange{Index: rc.Index, Before: b, After: a})
	}
	return changes, nil
}
