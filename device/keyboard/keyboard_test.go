package keyboard

import (
	"bytes"
	"testing"
)

func TestDecode(t *testing.T) {
	events := Decode([]byte("a\tb\b\x7f\x0c\r\n\x1b2\x1b9\x01"))

	exp := []Event{
		Char('a'),
		Char('\t'),
		Char('b'),
		{Kind: KindBackspace},
		{Kind: KindBackspace},
		{Kind: KindClear},
		{Kind: KindEnter},
		AltF(1),
		// an ESC that is not followed by a terminal number is dropped
		// but the next byte is kept
		Char('9'),
	}

	if len(events) != len(exp) {
		t.Fatalf("expected %d events; got %d: %+v", len(exp), len(events), events)
	}

	for i := range exp {
		if events[i] != exp[i] {
			t.Errorf("expected event %d to be %+v; got %+v", i, exp[i], events[i])
		}
	}
}

func TestKeyboardQueue(t *testing.T) {
	var raised int
	kb := New(func() { raised++ })

	kb.TypeString("hi\n")
	if raised != 1 {
		t.Fatalf("expected one interrupt per batch; got %d", raised)
	}
	if exp, got := 3, kb.Buffered(); got != exp {
		t.Fatalf("expected %d buffered events; got %d", exp, got)
	}

	for _, exp := range []Event{Char('h'), Char('i'), {Kind: KindEnter}} {
		ev, ok := kb.Next()
		if !ok || ev != exp {
			t.Fatalf("expected event %+v; got %+v (ok=%t)", exp, ev, ok)
		}
	}

	if _, ok := kb.Next(); ok {
		t.Fatal("expected queue to be empty")
	}
}

func TestKeyboardOverflow(t *testing.T) {
	kb := New(nil)

	for i := 0; i < QueueSize+10; i++ {
		kb.Press(Char('x'))
	}

	if exp, got := QueueSize, kb.Buffered(); got != exp {
		t.Fatalf("expected %d buffered events; got %d", exp, got)
	}
	if exp, got := uint64(10), kb.Dropped(); got != exp {
		t.Fatalf("expected %d dropped events; got %d", exp, got)
	}
}

func TestKeyboardDriverInterface(t *testing.T) {
	kb := New(nil)

	if exp, got := "ps2_keyboard", kb.DriverName(); got != exp {
		t.Fatalf("expected DriverName() to return %q; got %q", exp, got)
	}

	var buf bytes.Buffer
	if err := kb.DriverInit(&buf); err != nil {
		t.Fatal(err)
	}
	if exp, got := "event queue size 256\n", buf.String(); got != exp {
		t.Fatalf("expected init output %q; got %q", exp, got)
	}
}
