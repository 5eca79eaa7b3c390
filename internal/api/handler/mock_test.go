package handler

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/edvin/mailprov/internal/provision"
)

// mockProvisioner implements Provisioner for handler tests.
type mockProvisioner struct {
	mock.Mock
}

func (m *mockProvisioner) result(name string, ctx context.Context, p provision.Params) provision.Result {
	args := m.MethodCalled(name, ctx, p)
	return args.Get(0).(provision.Result)
}

func (m *mockProvisioner) CreateAccount(ctx context.Context, p provision.Params) provision.Result {
	return m.result("CreateAccount", ctx, p)
}

func (m *mockProvisioner) SuspendAccount(ctx context.Context, p provision.Params) provision.Result {
	return m.result("SuspendAccount", ctx, p)
}

func (m *mockProvisioner) UnsuspendAccount(ctx context.Context, p provision.Params) provision.Result {
	return m.result("UnsuspendAccount", ctx, p)
}

func (m *mockProvisioner) TerminateAccount(ctx context.Context, p provision.Params) provision.Result {
	return m.result("TerminateAccount", ctx, p)
}

func (m *mockProvisioner) ChangePackage(ctx context.Context, p provision.Params) provision.Result {
	return m.result("ChangePackage", ctx, p)
}

func (m *mockProvisioner) ChangePassword(ctx context.Context, p provision.Params) provision.Result {
	return m.result("ChangePassword", ctx, p)
}

func (m *mockProvisioner) SyncUsername(ctx context.Context, p provision.Params) provision.Result {
	return m.result("SyncUsername", ctx, p)
}

func (m *mockProvisioner) TestConnection(ctx context.Context, p provision.Params) provision.ConnectionResult {
	args := m.Called(ctx, p)
	return args.Get(0).(provision.ConnectionResult)
}

func (m *mockProvisioner) CustomAction(ctx context.Context, action string, p provision.Params) (provision.Result, bool) {
	args := m.Called(ctx, action, p)
	return args.Get(0).(provision.Result), args.Bool(1)
}
