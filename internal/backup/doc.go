// Package backup takes time-gated copies of the store file.
//
// A Policy is a two-state gate (Idle, Due) held by the caller. Each call to
// Manager.CheckAndBackup either does nothing or copies the store file byte
// for byte to backup_<timestamp><ext> and advances the gate. Copies are
// written with a temp file and rename, so a crash never leaves a partial
// backup behind.
package backup
