package vm

import (
	"testing"
)

func TestRunContractDeposit(t *testing.T) {
	source := `
contract Wallet {
    balance: u64;

    pub fn deposit(mut self, amt: u64) {
        self.balance = self.balance + amt;
    }

    pub fn get(self) -> u64 {
        self.balance
    }
}
`
	application := compileSource(t, source)
	runner := testRunner()

	output, err := runner.RunContract(application, "deposit",
		[]byte(`{"amt": "5"}`), []byte(`{"balance": "10"}`))
	if err != nil {
		t.Fatalf("deposit raised an error: %v", err)
	}
	if string(output.Storage) != `{"balance":"15"}` {
		t.Errorf("storage after deposit - got: %s, want {\"balance\":\"15\"}", output.Storage)
	}
	if !output.Satisfied {
		t.Errorf("unsatisfied constraint: %s", output.Unsatisfied)
	}

	// an immutable query reads the injected storage and leaves it intact
	query, err := runner.RunContract(application, "get",
		[]byte(`{}`), []byte(`{"balance": "10"}`))
	if err != nil {
		t.Fatalf("query raised an error: %v", err)
	}
	if string(query.Result) != `"10"` {
		t.Errorf("query result - got: %s, want \"10\"", query.Result)
	}
	if string(query.Storage) != `{"balance":"10"}` {
		t.Errorf("storage after query - got: %s, want it unchanged", query.Storage)
	}
}

func TestRunContractConditionalStore(t *testing.T) {
	source := `
contract Gate {
    hits: u64;

    pub fn bump(mut self, yes: bool) {
        if yes {
            self.hits = self.hits + 1;
        };
    }
}
`
	application := compileSource(t, source)
	runner := testRunner()

	taken, err := runner.RunContract(application, "bump",
		[]byte(`{"yes": true}`), []byte(`{"hits": "3"}`))
	if err != nil {
		t.Fatalf("taken branch raised an error: %v", err)
	}
	if string(taken.Storage) != `{"hits":"4"}` {
		t.Errorf("storage after taken branch - got: %s, want {\"hits\":\"4\"}", taken.Storage)
	}

	// both branches execute; only the selected store survives
	skipped, err := runner.RunContract(application, "bump",
		[]byte(`{"yes": false}`), []byte(`{"hits": "3"}`))
	if err != nil {
		t.Fatalf("skipped branch raised an error: %v", err)
	}
	if string(skipped.Storage) != `{"hits":"3"}` {
		t.Errorf("storage after skipped branch - got: %s, want {\"hits\":\"3\"}", skipped.Storage)
	}
	if !skipped.Satisfied {
		t.Errorf("unsatisfied constraint: %s", skipped.Unsatisfied)
	}
}

func TestRunContractTransfer(t *testing.T) {
	source := `
contract Treasury {
    balance: u248;

    pub fn pay(mut self, to: u160, amount: u248) {
        require(amount <= self.balance, "insufficient funds");
        self.balance = self.balance - amount;
        zksync::transfer(to, 0u16, amount);
    }
}
`
	application := compileSource(t, source)
	runner := testRunner()

	output, err := runner.RunContract(application, "pay",
		[]byte(`{"to": "1234", "amount": "40"}`), []byte(`{"balance": "100"}`))
	if err != nil {
		t.Fatalf("pay raised an error: %v", err)
	}
	if string(output.Storage) != `{"balance":"60"}` {
		t.Errorf("storage after pay - got: %s, want {\"balance\":\"60\"}", output.Storage)
	}
	if len(output.Transfers) != 1 {
		t.Fatalf("transfer count - got: %d, want 1", len(output.Transfers))
	}
	transfer := output.Transfers[0]
	if transfer.Recipient.String() != "1234" ||
		transfer.TokenID.String() != "0" ||
		transfer.Amount.String() != "40" {
		t.Errorf("transfer - got: %+v", transfer)
	}

	_, err = runner.RunContract(application, "pay",
		[]byte(`{"to": "1234", "amount": "101"}`), []byte(`{"balance": "100"}`))
	assertRuntimeKind(t, err, KindRequireFailed)
}

func TestRunContractMethodMissing(t *testing.T) {
	source := `
contract Wallet {
    balance: u64;

    pub fn get(self) -> u64 { self.balance }
}
`
	application := compileSource(t, source)

	_, err := testRunner().RunContract(application, "missing",
		[]byte(`{}`), []byte(`{"balance": "0"}`))
	if err == nil {
		t.Fatal("calling a missing method did not raise an error")
	}
}
