package event

import (
	"reflect"
	"testing"
)

func TestBusDeliversNextTick(t *testing.T) {
	b := NewBus()
	var got []int32
	Subscribe(b, func(e NpcPropsChanged) { got = append(got, e.NpcID) })

	Emit(b, NpcPropsChanged{NpcID: 1})
	Emit(b, NpcPropsChanged{NpcID: 2})
	if b.Pending() != 2 {
		t.Fatalf("pending = %d", b.Pending())
	}
	b.DispatchAll()
	if len(got) != 0 {
		t.Fatal("event delivered before swap")
	}

	b.SwapBuffers()
	b.DispatchAll()
	if !reflect.DeepEqual(got, []int32{1, 2}) {
		t.Fatalf("got %v", got)
	}

	b.SwapBuffers()
	b.DispatchAll()
	if len(got) != 2 {
		t.Fatal("event delivered twice")
	}
}

func TestBusTypeOrder(t *testing.T) {
	b := NewBus()
	var order []string
	Subscribe(b, func(e SessionLeft) { order = append(order, "left") })
	Subscribe(b, func(e NpcPropsChanged) { order = append(order, "props") })

	for i := 0; i < 20; i++ {
		order = order[:0]
		Emit(b, SessionLeft{SessionID: 1})
		Emit(b, NpcPropsChanged{NpcID: 1})
		Emit(b, SessionLeft{SessionID: 2})
		b.SwapBuffers()
		b.DispatchAll()
		if !reflect.DeepEqual(order, []string{"left", "left", "props"}) {
			t.Fatalf("round %d: order %v", i, order)
		}
	}
}
