package mapping

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/retroenv/retrogolib/assert"
)

const sampleCSV = `Bank,Type,Channel,Control,Input Device,Description,Output Device,Type,Channel,Control,Description
0,ON,1,5,Pads,Bank 1,Bank,bank_change,1,1,Bank 1 lamp
0,ON,1,7,Pads,Bank 2,Bank,bank_change,1,2,Bank 2 lamp
# filter section
1,CC,1,10,Knobs,Cutoff,SynthA,CC,2,20,Filter
2,CC,1,10,Knobs,Cutoff,SynthA,CC,2,1:9,Filter NRPN

0,PG,1,3,Knobs,Patch,SynthB,,3,4,Program
`

func TestNormalizeHeader(t *testing.T) {
	header := []string{"Bank", "Type", "Input Device", "Output Device", "Type", "Channel", "Control"}
	got := NormalizeHeader(header)
	want := []string{"bank", "type", "input-device", "output-device", "o-type", "o-channel", "o-control"}
	assert.Equal(t, len(want), len(got))
	for i := range want {
		assert.Equal(t, want[i], got[i])
	}
}

func TestParseCSV(t *testing.T) {
	records, err := ParseCSV(strings.NewReader(sampleCSV))
	assert.NoError(t, err)
	assert.Equal(t, 5, len(records))

	bank := records[0]
	assert.Equal(t, NoteOn, bank.InputType)
	assert.Equal(t, BankChange, bank.OutputType)
	assert.Equal(t, "Pads", bank.InputDevice)
	assert.True(t, bank.IsIndicator())
	assert.True(t, bank.IsBankChange())

	cc := records[2]
	assert.Equal(t, 1, cc.Bank)
	assert.Equal(t, ControlChange, cc.InputType)
	assert.Equal(t, 10, cc.InputControl)
	assert.Equal(t, "SynthA", cc.OutputDevice)
	assert.Equal(t, 2, cc.OutputChannel)
	assert.Equal(t, "20", cc.OutputControl)
	assert.Equal(t, "Filter", cc.OutputDescription)
	assert.False(t, cc.IsCompound())

	assert.True(t, records[3].IsCompound())

	// empty o-type falls back to the input type
	assert.Equal(t, ProgramChange, records[4].OutputType)
}

func TestParseCSVErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"empty", ""},
		{"missing column", "bank,type,channel\n0,CC,1\n"},
		{"bad type", "bank,type,channel,control,output device,channel,control\n0,XX,1,1,A,1,1\n"},
		{"bad channel", "bank,type,channel,control,output device,channel,control\n0,CC,x,1,A,1,1\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseCSV(strings.NewReader(tt.data))
			assert.True(t, errors.Is(err, ErrInvalidRecord))
		})
	}
}

func TestParseYAML(t *testing.T) {
	data := `
mappings:
  - bank: 0
    type: cc
    channel: 1
    control: 10
    description: Cutoff
    output-device: SynthA
    o-channel: 2
    o-control: "20"
    o-description: Filter
  - type: note_on
    channel: 1
    control: 5
    output-device: Bank
    o-type: bank_change
    o-control: "3"
`
	records, err := ParseYAML(strings.NewReader(data))
	assert.NoError(t, err)
	assert.Equal(t, 2, len(records))
	assert.Equal(t, ControlChange, records[0].OutputType)
	assert.Equal(t, "20", records[0].OutputControl)
	assert.Equal(t, BankChange, records[1].OutputType)

	_, err = ParseYAML(strings.NewReader("mappings:\n  - type: bogus\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "mappings.csv")
	assert.NoError(t, os.WriteFile(path, []byte(sampleCSV), 0644))

	table, err := Load(path)
	assert.NoError(t, err)
	assert.Equal(t, 5, table.Len())
	assert.Equal(t, 2, len(table.Indicators()))

	banks := table.Banks()
	assert.Equal(t, 2, len(banks))
	assert.Equal(t, 1, banks[0])
	assert.Equal(t, 2, banks[1])

	_, err = Load(filepath.Join(dir, "missing.csv"))
	assert.Error(t, err)
}

func TestTableMatch(t *testing.T) {
	records, err := ParseCSV(strings.NewReader(sampleCSV))
	assert.NoError(t, err)
	table, err := NewTable(records)
	assert.NoError(t, err)

	m := table.Match(ControlChange, 1, 10, 1)
	assert.Equal(t, 1, len(m))
	assert.Equal(t, "20", m[0].OutputControl)

	m = table.Match(ControlChange, 1, 10, 2)
	assert.Equal(t, 1, len(m))
	assert.Equal(t, "1:9", m[0].OutputControl)

	assert.Equal(t, 0, len(table.Match(ControlChange, 1, 10, 3)))
	assert.Equal(t, 1, len(table.Match(ProgramChange, 1, 3, 9)))
	assert.Equal(t, 0, len(table.Match(NoteOff, 1, 5, 1)))
}

func TestTableIsIsolatedFromInput(t *testing.T) {
	records := []Record{{InputType: NoteOn, InputChannel: 1, InputControl: 1,
		OutputDevice: "A", OutputType: NoteOn, OutputChannel: 1, OutputControl: "1"}}
	table, err := NewTable(records)
	assert.NoError(t, err)

	records[0].OutputDevice = "changed"
	assert.Equal(t, "A", table.Match(NoteOn, 1, 1, 0)[0].OutputDevice)
}

func TestIndicatorsReturnsCopy(t *testing.T) {
	records, err := ParseCSV(strings.NewReader(sampleCSV))
	assert.NoError(t, err)
	table, err := NewTable(records)
	assert.NoError(t, err)

	indicators := table.Indicators()
	assert.Equal(t, 2, len(indicators))
	indicators[0].InputControl = 99

	again := table.Indicators()
	assert.Equal(t, 2, len(again))
	assert.Equal(t, 5, again[0].InputControl)
	assert.Equal(t, 7, again[1].InputControl)
}

func TestBanksIncludesTargets(t *testing.T) {
	table, err := NewTable([]Record{
		{Bank: 4, InputType: ControlChange, InputChannel: 1, InputControl: 1,
			OutputDevice: "A", OutputType: ControlChange, OutputChannel: 1, OutputControl: "1"},
		{InputType: NoteOn, InputChannel: 1, InputControl: 5,
			OutputDevice: BankDevice, OutputType: BankChange, OutputControl: "3"},
		{InputType: NoteOn, InputChannel: 1, InputControl: 6,
			OutputDevice: BankDevice, OutputType: BankChange, OutputControl: "bad"},
	})
	assert.NoError(t, err)

	banks := table.Banks()
	assert.Equal(t, 2, len(banks))
	assert.Equal(t, 3, banks[0])
	assert.Equal(t, 4, banks[1])
}

func TestNewTableValidation(t *testing.T) {
	valid := Record{InputType: ControlChange, InputChannel: 1, InputControl: 1,
		OutputDevice: "A", OutputType: ControlChange, OutputChannel: 1, OutputControl: "1"}

	tests := []struct {
		name   string
		modify func(*Record)
	}{
		{"negative bank", func(r *Record) { r.Bank = -1 }},
		{"bank change input", func(r *Record) { r.InputType = BankChange }},
		{"channel 0", func(r *Record) { r.InputChannel = 0 }},
		{"channel 17", func(r *Record) { r.InputChannel = 17 }},
		{"control 128", func(r *Record) { r.InputControl = 128 }},
		{"output channel", func(r *Record) { r.OutputChannel = 0 }},
		{"no output type", func(r *Record) { r.OutputType = TypeUnknown }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := valid
			tt.modify(&r)
			_, err := NewTable([]Record{r})
			assert.True(t, errors.Is(err, ErrInvalidRecord))
		})
	}

	// bank changes do not need an output channel
	bank := valid
	bank.OutputType = BankChange
	bank.OutputChannel = 0
	_, err := NewTable([]Record{bank})
	assert.NoError(t, err)
}

func TestAmbiguousBankChange(t *testing.T) {
	change := func(bank int, target string) Record {
		return Record{Bank: bank, InputType: NoteOn, InputChannel: 1, InputControl: 5,
			OutputDevice: BankDevice, OutputType: BankChange, OutputControl: target}
	}

	tests := []struct {
		name    string
		records []Record
		wantErr bool
	}{
		{"same bank", []Record{change(1, "2"), change(1, "3")}, true},
		{"wildcard overlaps", []Record{change(0, "2"), change(3, "1")}, true},
		{"distinct banks", []Record{change(1, "2"), change(2, "1")}, false},
		{"one change plus translation", []Record{change(0, "2"),
			{InputType: NoteOn, InputChannel: 1, InputControl: 5, OutputDevice: "A",
				OutputType: NoteOn, OutputChannel: 1, OutputControl: "60"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewTable(tt.records)
			if tt.wantErr {
				assert.True(t, errors.Is(err, ErrAmbiguousBankChange))
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestParseMessageType(t *testing.T) {
	for s, want := range map[string]MessageType{
		"ON": NoteOn, "note_off": NoteOff, " cc ": ControlChange, "PG": ProgramChange, "bank_change": BankChange,
	} {
		got, err := ParseMessageType(s)
		assert.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseMessageType("clock")
	assert.Error(t, err)
	assert.Equal(t, "control_change", ControlChange.String())
	assert.False(t, BankChange.IsWire())
}
