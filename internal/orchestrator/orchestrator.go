// Package orchestrator is the thin façade the external HTTP layer
// consumes (spec.md §4.8): submit single/batch/scheduled jobs, query
// task status, fetch artifacts, diff two captures. It is the one
// place that wires the Task Store, Worker Pool, Connection Pool,
// Artifact Store, and Credential Vault together.
package orchestrator

import (
	"firestige.xyz/netbackup/internal/artifact"
	"firestige.xyz/netbackup/internal/connpool"
	"firestige.xyz/netbackup/internal/devicesession"
	"firestige.xyz/netbackup/internal/models"
	"firestige.xyz/netbackup/internal/scheduler"
	"firestige.xyz/netbackup/internal/taskstore"
	"firestige.xyz/netbackup/internal/vault"
	"firestige.xyz/netbackup/internal/workerpool"
)

// Result is the {success, error?} envelope every Orchestrator verb
// resolves to at the HTTP boundary (spec.md §7 "user-visible
// failure"). Verbs below return (value, error) in Go style; the HTTP
// layer (out of scope here) is what flattens errors into this shape.
type Result struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// Orchestrator wires every backup-engine component behind the coarse
// verbs spec.md §4.8 names.
type Orchestrator struct {
	tasks     *taskstore.Store
	pool      *workerpool.Pool
	conns     *connpool.Pool
	artifacts *artifact.Store
	vault     *vault.Vault
	sched     *scheduler.Scheduler
}

// New builds an Orchestrator. Call SetScheduler once the Scheduler is
// constructed (it in turn depends on the Orchestrator as its
// scheduler.Runner, so the two are wired in two steps at startup).
func New(tasks *taskstore.Store, pool *workerpool.Pool, conns *connpool.Pool, artifacts *artifact.Store, v *vault.Vault) *Orchestrator {
	return &Orchestrator{tasks: tasks, pool: pool, conns: conns, artifacts: artifacts, vault: v}
}

// SetScheduler completes the circular wiring between Orchestrator and
// Scheduler: the daemon constructs Orchestrator, then
// scheduler.New(cfg, orchestrator), then calls this.
func (o *Orchestrator) SetScheduler(s *scheduler.Scheduler) {
	o.sched = s
}

// decryptCredentials resolves a Device's ciphertext fields into the
// plaintext Credentials a Device Session needs. Wired into the
// Connection Pool as its CredentialFunc (spec.md §4.1, §4.3) so
// plaintext passwords never live longer than one Acquire call.
func (o *Orchestrator) decryptCredentials(device models.Device) (devicesession.Credentials, error) {
	password, err := o.vault.Decrypt(device.PasswordCipher)
	if err != nil {
		return devicesession.Credentials{}, err
	}
	var enable string
	if device.EnablePasswordCipher != "" {
		enable, err = o.vault.Decrypt(device.EnablePasswordCipher)
		if err != nil {
			return devicesession.Credentials{}, err
		}
	}
	return devicesession.Credentials{Password: password, EnablePassword: enable}, nil
}

// CredentialFunc exposes decryptCredentials for connpool.New's
// CredentialFunc parameter, keeping the Vault's decrypt lifetime
// scoped to the Connection Pool's Acquire calls.
func (o *Orchestrator) CredentialFunc() connpool.CredentialFunc {
	return o.decryptCredentials
}
