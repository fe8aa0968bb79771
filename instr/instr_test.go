package instr

import "testing"

func TestMakeRoundTrip(t *testing.T) {
	w := Make(OpLoopOpen, 1234)
	if w.Op() != OpLoopOpen {
		t.Fatalf("got op %v", w.Op())
	}
	if w.Payload() != 1234 {
		t.Fatalf("got payload %d", w.Payload())
	}
}

func TestWithPayloadKeepsOp(t *testing.T) {
	w := Make(OpJump, 0)
	w = w.WithPayload(77)
	if w.Op() != OpJump || w.Payload() != 77 {
		t.Fatalf("got op=%v payload=%d", w.Op(), w.Payload())
	}
}

func TestProcID(t *testing.T) {
	cases := []struct {
		ch   rune
		want int
	}{
		{'0', 0}, {'9', 9},
		{'A', 10}, {'Z', 35},
		{'a', 36}, {'z', 61},
		{'+', -1}, {' ', -1},
	}
	for _, c := range cases {
		if got := ProcID(c.ch); got != c.want {
			t.Errorf("ProcID(%q) = %d, want %d", c.ch, got, c.want)
		}
	}
}
