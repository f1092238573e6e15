package subtitle

import (
	"errors"
	"math"
	"strings"
	"testing"
)

const sample = `1
00:00:01,000 --> 00:00:02,500
Hello

2
00:00:03,000 --> 00:00:05,250
Two
lines

3
00:01:00,000 --> 00:01:01,000
`

func TestParse(t *testing.T) {
	cues, err := Parse(sample)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(cues) != 2 {
		t.Fatalf("got %d cues, want 2 (text-less block dropped)", len(cues))
	}
	if cues[0].Start != 1 || cues[0].End != 2.5 || cues[0].Text != "Hello" {
		t.Errorf("cue 0 = %+v", cues[0])
	}
	if cues[1].Text != "Two\nlines" {
		t.Errorf("cue 1 text = %q, want joined lines", cues[1].Text)
	}
	if math.Abs(cues[1].End-5.25) > 1e-9 {
		t.Errorf("cue 1 end = %v, want 5.25", cues[1].End)
	}
}

func TestParse_EdgeCases(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Cue
	}{
		{"empty", "", nil},
		{"blank lines only", "\n\n\n", nil},
		{
			"trailing block without blank line",
			"1\n00:00:00,000 --> 00:00:01,000\nlast",
			[]Cue{{Start: 0, End: 1, Text: "last"}},
		},
		{
			"crlf and no sequence numbers",
			"00:00:02,000 --> 00:00:03,000\r\nB\r\n\r\n00:00:00,000 --> 00:00:01,000\r\nA\r\n",
			[]Cue{{Start: 0, End: 1, Text: "A"}, {Start: 2, End: 3, Text: "B"}},
		},
		{
			"byte order mark",
			"\ufeff1\n00:00:00,000 --> 00:00:01,000\nA\n",
			[]Cue{{Start: 0, End: 1, Text: "A"}},
		},
		{
			"dot separator and position hint",
			"1\n00:00:00.500 --> 00:00:01.000 X1:10 X2:20\nA\n",
			[]Cue{{Start: 0.5, End: 1, Text: "A"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			if err != nil {
				t.Fatalf("Parse: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %d cues %+v, want %d", len(got), got, len(tt.want))
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Errorf("cue %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestParse_RejectsMalformedTiming(t *testing.T) {
	tests := []struct {
		name string
		line string
		want error
	}{
		{"non numeric", "00:aa:01,000 --> 00:00:02,000", ErrInvalidTimestamp},
		{"nan seconds", "00:00:NaN --> 00:00:02,000", ErrInvalidTimestamp},
		{"minutes overflow", "00:61:00,000 --> 00:62:00,000", ErrInvalidTimestamp},
		{"hours overflow", "2562047788015216:00:00,000 --> 2562047788015216:00:01,000", ErrInvalidTimestamp},
		{"hours past ceiling", "10000:00:00,000 --> 10000:00:01,000", ErrInvalidTimestamp},
		{"two fields", "00:01,000 --> 00:02,000", ErrInvalidTimestamp},
		{"missing end", "00:00:01,000 -->", ErrMissingTiming},
		{"end before start", "00:00:05,000 --> 00:00:01,000", ErrInvalidRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse("1\n" + tt.line + "\ntext\n")
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("err is %T, want *ParseError", err)
			}
			if perr.Line != 2 {
				t.Errorf("Line = %d, want 2", perr.Line)
			}
		})
	}
}

func TestParseLenient(t *testing.T) {
	input := "1\n00:00:00,000 --> 00:00:01,000\nok\n\n2\nbad --> 00:00:02,000\nskipped\n\n3\n00:00:03,000 --> 00:00:04,000\nalso ok\n"
	cues, errs := ParseLenient(input)
	if len(cues) != 2 {
		t.Fatalf("got %d cues, want 2", len(cues))
	}
	if len(errs) != 1 || errs[0].Line != 6 {
		t.Fatalf("errs = %v, want one error on line 6", errs)
	}
	for _, c := range cues {
		if strings.Contains(c.Text, "skipped") {
			t.Errorf("text of broken block leaked into %+v", c)
		}
	}
}

func TestParse_StartBeforeEnd(t *testing.T) {
	cues, err := Parse(sample)
	if err != nil {
		t.Fatal(err)
	}
	for i, c := range cues {
		if c.Start > c.End {
			t.Errorf("cue %d: start %v > end %v", i, c.Start, c.End)
		}
		if i > 0 && cues[i-1].Start > c.Start {
			t.Errorf("cues not sorted at %d", i)
		}
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	values := []float64{0, 0.001, 1.5, 59.999, 61.25, 3599.999, 3600, 36000.123, 359999.999, 35999999.999}
	for _, v := range values {
		s := FormatTimestamp(v)
		got, err := ParseTimestamp(s)
		if err != nil {
			t.Fatalf("ParseTimestamp(%q): %v", s, err)
		}
		if math.Abs(got-v) > 1e-6 {
			t.Errorf("round trip %v -> %q -> %v", v, s, got)
		}
	}
}

func TestFormat_ReparsesToSameCues(t *testing.T) {
	cues, err := Parse(sample)
	if err != nil {
		t.Fatal(err)
	}
	again, err := Parse(Format(cues))
	if err != nil {
		t.Fatalf("reparse: %v", err)
	}
	if len(again) != len(cues) {
		t.Fatalf("reparse produced %d cues, want %d", len(again), len(cues))
	}
	for i := range cues {
		if math.Abs(again[i].Start-cues[i].Start) > 1e-6 || math.Abs(again[i].End-cues[i].End) > 1e-6 || again[i].Text != cues[i].Text {
			t.Errorf("cue %d: %+v != %+v", i, again[i], cues[i])
		}
	}
}

func TestToVTTAndBack(t *testing.T) {
	cues := []Cue{{Start: 0, End: 2, Text: "A"}, {Start: 2, End: 4.5, Text: "B\nC"}}
	vtt := ToVTT(cues)
	if !strings.HasPrefix(vtt, "WEBVTT\n\n") {
		t.Fatalf("missing header: %q", vtt)
	}
	if !strings.Contains(vtt, "00:00:02.000 --> 00:00:04.500") {
		t.Errorf("vtt timestamps not dot-separated: %q", vtt)
	}
	back := ParseVTT(vtt)
	if len(back) != 2 || back[1] != cues[1] {
		t.Errorf("ParseVTT = %+v, want %+v", back, cues)
	}
}
