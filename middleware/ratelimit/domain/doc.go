// Package domain define contratos e tipos do controle de admissão e do limite de concorrência.
//
// Este pacote não depende de net/http nem de implementações concretas:
// ClientKey, WindowConfig e Decision são valores puros, e RequestLog, StatsStore
// e SlotPool são as portas implementadas em infra.
package domain
