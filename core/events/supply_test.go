package events

import (
	"testing"

	"github.com/holiman/uint256"

	"posichain/crypto"
)

func TestTokenSupplyEvent(t *testing.T) {
	evt := TokenSupply{
		Token:  "posi",
		Total:  uint256.NewInt(5000),
		Delta:  uint256.NewInt(250),
		Reason: SupplyReasonMint,
	}.Event()
	if evt == nil {
		t.Fatalf("expected event")
	}
	if evt.Type != TypeTokenSupply {
		t.Fatalf("unexpected type: %s", evt.Type)
	}
	if evt.Attributes["token"] != "POSI" {
		t.Fatalf("unexpected token attr: %s", evt.Attributes["token"])
	}
	if evt.Attributes["total"] != "5000" || evt.Attributes["delta"] != "250" {
		t.Fatalf("unexpected attrs: %+v", evt.Attributes)
	}
	if evt.Attributes["reason"] != SupplyReasonMint {
		t.Fatalf("unexpected reason: %s", evt.Attributes["reason"])
	}
}

func TestTransferEventOmitsZeroFee(t *testing.T) {
	from := crypto.ModuleAddress("a")
	evt := Transfer{Asset: "posi", From: from, Amount: uint256.NewInt(7)}.Event()
	if _, ok := evt.Attributes["fee"]; ok {
		t.Fatalf("zero fee must be omitted: %+v", evt.Attributes)
	}
	if _, ok := evt.Attributes["to"]; ok {
		t.Fatalf("zero recipient must be omitted: %+v", evt.Attributes)
	}
	if evt.Attributes["from"] != from.String() {
		t.Fatalf("unexpected from attr: %s", evt.Attributes["from"])
	}
}

func TestBufferFlushAndDiscard(t *testing.T) {
	var buf Buffer
	buf.Emit(TransferStatusChanged{Token: "posi", Previous: false, Current: true})
	buf.Emit(Reflection{Token: "posi", Amount: uint256.NewInt(1), Reason: ReflectionReasonFee})

	var got []string
	sink := EmitterFunc(func(e Event) { got = append(got, e.EventType()) })
	buf.Flush(sink)
	if len(got) != 2 || got[0] != TypeTransferStatusChanged || got[1] != TypeReflection {
		t.Fatalf("unexpected flushed events: %v", got)
	}
	if len(buf.Events()) != 0 {
		t.Fatalf("buffer not cleared after flush")
	}

	buf.Emit(Reflection{Token: "posi"})
	buf.Discard()
	buf.Flush(sink)
	if len(got) != 2 {
		t.Fatalf("discarded events must not be flushed")
	}
}
