// Package infra contém implementações concretas para os contratos definidos no
// pacote domain.
//
//   - SlidingLog: registro de timestamps por ClientKey com janela deslizante,
//     locks por shard e janitor para chaves ociosas
//   - NewChanPool: semáforo para limite de concorrência
//   - MemoryStatsStore / RedisStatsStore: contadores de decisões (allow/deny)
package infra
