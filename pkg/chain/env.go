package chain

import (
	"github.com/tzrikka/qll/pkg/credentials"
	"github.com/tzrikka/qll/pkg/slackapi"
	"github.com/tzrikka/qll/pkg/state"
)

// Env holds the process-lifetime capability handles that are passed to every
// event handler. The credentials and the API client are read-only; the state
// store's mutation discipline is up to the handlers that use it.
type Env struct {
	Credentials *credentials.Bundle
	Client      *slackapi.Client
	State       state.Store
}
