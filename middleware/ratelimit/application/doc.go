// Package application contém os casos de uso do controle de admissão e do limite
// de concorrência.
//
// Depende apenas do pacote domain e não conhece net/http.
// Ex.: Service.Decide(key) retorna uma Decision (admitido/rejeitado + cota restante).
package application
