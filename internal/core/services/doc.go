// Package services implements the driving ports on top of the driven ones.
//
// SearchService plans a request, runs the lexical and vector legs, fuses
// them and hydrates one page of results. DocumentService owns document and
// chunk writes; the lexical index follows those writes through store hooks.
// IndexService reports index health and repairs it by backfill or rebuild.
// SettingsService persists user settings through a ConfigStore.
package services
