package mapping

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var (
	ErrInvalidRecord       = errors.New("invalid mapping record")
	ErrAmbiguousBankChange = errors.New("ambiguous bank change")
)

// matchKey is the part of a record compared against every incoming event
type matchKey struct {
	typ     MessageType
	channel int
	control int
}

// Table is the loaded mapping table. It is never modified after NewTable.
type Table struct {
	records    []Record
	index      map[matchKey][]int // positions into records, in table order
	indicators []Record
}

// NewTable validates the records and builds the lookup index
func NewTable(records []Record) (*Table, error) {
	t := &Table{
		records: make([]Record, len(records)),
		index:   make(map[matchKey][]int),
	}
	copy(t.records, records)

	for i, r := range t.records {
		if err := validateRecord(r); err != nil {
			return nil, fmt.Errorf("record %d (%s): %w", i+1, r.Description, err)
		}
		k := matchKey{typ: r.InputType, channel: r.InputChannel, control: r.InputControl}
		t.index[k] = append(t.index[k], i)
		if r.IsIndicator() {
			t.indicators = append(t.indicators, r)
		}
	}

	if err := t.checkBankChanges(); err != nil {
		return nil, err
	}
	return t, nil
}

func validateRecord(r Record) error {
	if r.Bank < 0 {
		return fmt.Errorf("%w: bank %d is negative", ErrInvalidRecord, r.Bank)
	}
	if !r.InputType.IsWire() {
		return fmt.Errorf("%w: input type %s", ErrInvalidRecord, r.InputType)
	}
	if r.InputChannel < 1 || r.InputChannel > 16 {
		return fmt.Errorf("%w: channel %d (must be 1-16)", ErrInvalidRecord, r.InputChannel)
	}
	if r.InputControl < 0 || r.InputControl > 127 {
		return fmt.Errorf("%w: control %d (must be 0-127)", ErrInvalidRecord, r.InputControl)
	}
	if r.OutputType == TypeUnknown {
		return fmt.Errorf("%w: missing output type", ErrInvalidRecord)
	}
	// bank changes never reach the wire, so their channel is irrelevant
	if !r.IsBankChange() && (r.OutputChannel < 1 || r.OutputChannel > 16) {
		return fmt.Errorf("%w: output channel %d (must be 1-16)", ErrInvalidRecord, r.OutputChannel)
	}
	return nil
}

// checkBankChanges rejects inputs that could fire more than one bank change
// in the same bank. A bank 0 record overlaps every other bank.
func (t *Table) checkBankChanges() error {
	for k, positions := range t.index {
		seen := make(map[int]int) // bank -> record position
		for _, i := range positions {
			r := t.records[i]
			if !r.IsBankChange() {
				continue
			}
			for bank, prev := range seen {
				if bank == r.Bank || bank == 0 || r.Bank == 0 {
					return fmt.Errorf("%w: records %d and %d (%s ch%d #%d)",
						ErrAmbiguousBankChange, prev+1, i+1, k.typ, k.channel, k.control)
				}
			}
			seen[r.Bank] = i
		}
	}
	return nil
}

// Match returns the records that fire for the given input in the given bank,
// in table order. Returns nil when nothing matches.
func (t *Table) Match(typ MessageType, channel, control, bank int) []Record {
	positions, ok := t.index[matchKey{typ: typ, channel: channel, control: control}]
	if !ok {
		return nil
	}
	var matches []Record
	for _, i := range positions {
		r := t.records[i]
		if r.Bank == 0 || r.Bank == bank {
			matches = append(matches, r)
		}
	}
	return matches
}

// Indicators returns a copy of the bank indicator records in table order
func (t *Table) Indicators() []Record {
	out := make([]Record, len(t.indicators))
	copy(out, t.indicators)
	return out
}

// Len returns the number of records
func (t *Table) Len() int {
	return len(t.records)
}

// Banks returns the distinct non-wildcard banks referenced by the table,
// sorted. Bank change targets count as referenced banks.
func (t *Table) Banks() []int {
	seen := make(map[int]bool)
	var banks []int
	for _, r := range t.records {
		if r.Bank != 0 && !seen[r.Bank] {
			seen[r.Bank] = true
			banks = append(banks, r.Bank)
		}
		if r.IsBankChange() {
			if target, err := strconv.Atoi(strings.TrimSpace(r.OutputControl)); err == nil && target > 0 && !seen[target] {
				seen[target] = true
				banks = append(banks, target)
			}
		}
	}
	sort.Ints(banks)
	return banks
}
