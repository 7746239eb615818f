package fd

import (
	"testing"

	"lwos/kernel"
)

type recordingOps struct {
	opened, closed int
	openErr        *kernel.Error
}

func (ops *recordingOps) Open(*Descriptor) *kernel.Error {
	ops.opened++
	return ops.openErr
}

func (ops *recordingOps) Read(_ *Descriptor, buf []byte) (int, *kernel.Error) {
	return len(buf), nil
}

func (ops *recordingOps) Write(_ *Descriptor, buf []byte) (int, *kernel.Error) {
	return len(buf), nil
}

func (ops *recordingOps) Close(*Descriptor) *kernel.Error {
	ops.closed++
	return nil
}

func TestOpenLowestFree(t *testing.T) {
	var (
		tab Table
		ops = &recordingOps{}
	)

	tab.Bind(Stdin, ops, 0)
	tab.Bind(Stdout, ops, 0)

	for exp := 2; exp < MaxFiles; exp++ {
		num, err := tab.Open(ops, 0)
		if err != nil || num != exp {
			t.Fatalf("expected open to return %d; got %d, %v", exp, num, err)
		}
	}

	if num, err := tab.Open(ops, 0); num != -1 || err != ErrTableFull {
		t.Fatalf("expected open on a full table to fail with ErrTableFull; got %d, %v", num, err)
	}

	if err := tab.Close(5); err != nil {
		t.Fatal(err)
	}
	if err := tab.Close(3); err != nil {
		t.Fatal(err)
	}

	if num, _ := tab.Open(ops, 0); num != 3 {
		t.Fatalf("expected the lowest freed descriptor 3 to be reused; got %d", num)
	}
	if num, _ := tab.Open(ops, 0); num != 5 {
		t.Fatalf("expected descriptor 5 to be reused; got %d", num)
	}

	if exp := 8; ops.opened != exp {
		t.Errorf("expected backend Open to be called %d times; got %d", exp, ops.opened)
	}
}

func TestOpenBackendError(t *testing.T) {
	var (
		tab    Table
		expErr = &kernel.Error{Module: "test", Message: "refused"}
		ops    = &recordingOps{openErr: expErr}
	)

	if num, err := tab.Open(ops, 0); num != -1 || err != expErr {
		t.Fatalf("expected backend error to be returned; got %d, %v", num, err)
	}

	if tab.InUse(2) {
		t.Fatal("expected descriptor 2 to stay free after a failed open")
	}
}

func TestDirectionChecks(t *testing.T) {
	var (
		tab Table
		ops = &recordingOps{}
		buf = make([]byte, 4)
	)

	tab.Bind(Stdin, ops, 0)
	tab.Bind(Stdout, ops, 0)

	specs := []struct {
		descr  string
		fn     func() (int, *kernel.Error)
		expErr bool
	}{
		{"read stdin", func() (int, *kernel.Error) { return tab.Read(Stdin, buf) }, false},
		{"write stdout", func() (int, *kernel.Error) { return tab.Write(Stdout, buf) }, false},
		{"write stdin", func() (int, *kernel.Error) { return tab.Write(Stdin, buf) }, true},
		{"read stdout", func() (int, *kernel.Error) { return tab.Read(Stdout, buf) }, true},
		{"read unopened", func() (int, *kernel.Error) { return tab.Read(4, buf) }, true},
		{"read negative", func() (int, *kernel.Error) { return tab.Read(-1, buf) }, true},
		{"write out of range", func() (int, *kernel.Error) { return tab.Write(MaxFiles, buf) }, true},
	}

	for specIndex, spec := range specs {
		n, err := spec.fn()
		if spec.expErr {
			if n != -1 || err != ErrBadDescriptor {
				t.Errorf("[spec %d] %s: expected -1, ErrBadDescriptor; got %d, %v", specIndex, spec.descr, n, err)
			}
			continue
		}

		if err != nil || n != len(buf) {
			t.Errorf("[spec %d] %s: expected %d; got %d, %v", specIndex, spec.descr, len(buf), n, err)
		}
	}
}

func TestClose(t *testing.T) {
	var (
		tab Table
		ops = &recordingOps{}
	)

	tab.Bind(Stdin, ops, 0)
	tab.Bind(Stdout, ops, 0)
	num, _ := tab.Open(ops, 0)

	for _, bad := range []int{Stdin, Stdout, 3, -1, MaxFiles} {
		if err := tab.Close(bad); err != ErrBadDescriptor {
			t.Errorf("expected closing %d to fail; got %v", bad, err)
		}
	}

	if err := tab.Close(num); err != nil {
		t.Fatal(err)
	}
	if err := tab.Close(num); err != ErrBadDescriptor {
		t.Errorf("expected closing %d twice to fail; got %v", num, err)
	}

	if ops.closed != 1 {
		t.Errorf("expected backend Close to be called once; got %d", ops.closed)
	}
}

func TestCloseAll(t *testing.T) {
	var (
		tab Table
		ops = &recordingOps{}
	)

	tab.Bind(Stdin, ops, 0)
	tab.Bind(Stdout, ops, 0)
	tab.Open(ops, 0)
	tab.Open(ops, 0)

	tab.CloseAll()

	for num := 0; num < MaxFiles; num++ {
		if tab.InUse(num) {
			t.Errorf("expected descriptor %d to be closed", num)
		}
	}

	if exp := 4; ops.closed != exp {
		t.Errorf("expected backend Close to be called %d times; got %d", exp, ops.closed)
	}
}
