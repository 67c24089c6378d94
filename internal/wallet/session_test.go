package wallet

import (
	"context"
	"testing"
)

type fakeNotifier struct {
	accountsFn func([]string)
	chainFn    func(uint64)
}

func (f *fakeNotifier) OnAccountsChanged(fn func([]string)) { f.accountsFn = fn }
func (f *fakeNotifier) OnChainChanged(fn func(uint64))      { f.chainFn = fn }

func TestSessionConnect(t *testing.T) {
	provider := &fakeProvider{accounts: []string{"0xabc", "0xdef"}}
	session := NewSession(provider, nil)

	account, err := session.Connect(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if account != "0xabc" || session.Account() != "0xabc" {
		t.Fatalf("wrong account: %s", session.Account())
	}
}

func TestSessionAccountRemovalDisconnects(t *testing.T) {
	provider := &fakeProvider{accounts: []string{"0xabc"}}
	session := NewSession(provider, nil)
	if _, err := session.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	disconnects := 0
	session.OnDisconnect(func() { disconnects++ })

	notifier := &fakeNotifier{}
	session.Bind(notifier)

	notifier.accountsFn(nil)
	if session.Account() != "" {
		t.Fatalf("account not cleared")
	}
	if disconnects != 1 {
		t.Fatalf("disconnect hooks fired %d times", disconnects)
	}

	// Same (empty) account again: no extra firing.
	notifier.accountsFn(nil)
	if disconnects != 1 {
		t.Fatalf("hooks fired on no-op change")
	}
}

func TestSessionAccountSwitchResetsState(t *testing.T) {
	provider := &fakeProvider{accounts: []string{"0xabc"}}
	session := NewSession(provider, nil)
	if _, err := session.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}

	disconnects := 0
	session.OnDisconnect(func() { disconnects++ })
	notifier := &fakeNotifier{}
	session.Bind(notifier)

	notifier.accountsFn([]string{"0xother"})
	if session.Account() != "0xother" {
		t.Fatalf("account not updated: %s", session.Account())
	}
	if disconnects != 1 {
		t.Fatalf("state hooks not fired on account switch")
	}
}

func TestSessionChainChanged(t *testing.T) {
	session := NewSession(&fakeProvider{}, nil)
	var gotChain uint64
	session.OnChainChanged(func(id uint64) { gotChain = id })

	notifier := &fakeNotifier{}
	session.Bind(notifier)
	notifier.chainFn(11155111)

	if gotChain != 11155111 {
		t.Fatalf("chain hook got %d", gotChain)
	}
}
