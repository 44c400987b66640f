// Package repo contains the PostgreSQL implementation of the ledger ports.
//
// Every statement goes through db.Executor or db.Transactor so it is pooled,
// instrumented and labelled with one of the Op* operation names. Statements
// with optional filters are built with squirrel; fixed statements are
// constants with positional placeholders. Input never reaches SQL text.
//
// The database owns the reporting logic (vw_saldo_atual,
// vw_relatorio_mensal, sp_inserir_lote_transacoes, sp_consolidar_mes,
// fn_buscar_por_tags, fn_estatisticas_periodo); this package only calls it.
package repo
