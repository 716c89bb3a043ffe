package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"

	"github.com/asyncsql/asyncsql/client"
	"github.com/asyncsql/asyncsql/core"
	"github.com/asyncsql/asyncsql/pool"
)

var (
	driverName = flag.String("driver", "sqlite3", "database driver (sqlite3, mysql, postgres)")
	dsn        = flag.String("dsn", "", "database connection string (DSN)")
	query      = flag.String("query", "", "SQL to run; bare ? placeholders bind the trailing arguments")
	timeout    = flag.Duration("timeout", 30*time.Second, "overall execution timeout")
)

func main() {
	flag.Parse()
	if *query == "" {
		log.Fatal("asq: -query is required")
	}

	c, err := client.Open(*driverName, *dsn, client.Options{
		Pool: pool.Options{MaxConnections: 1, AcquireTimeout: *timeout},
	})
	if err != nil {
		log.Fatalf("asq: open: %v", err)
	}
	defer c.Close()

	st := core.NewStatement(*query)
	for i, arg := range flag.Args() {
		st.Bind(i, arg)
	}
	if err := st.Err(); err != nil {
		log.Fatalf("asq: bind: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if isQuery(*query) {
		rs, err := c.FetchAll(ctx, st)
		if err != nil {
			log.Fatalf("asq: query: %v", err)
		}
		printResultSet(rs)
		return
	}

	n, err := c.Execute(ctx, st)
	if err != nil {
		log.Fatalf("asq: exec: %v", err)
	}
	fmt.Printf("ok (%d rows affected)\n", n)
}

func isQuery(sql string) bool {
	s := strings.ToUpper(strings.TrimSpace(sql))
	return strings.HasPrefix(s, "SELECT") || strings.HasPrefix(s, "WITH") ||
		strings.HasPrefix(s, "SHOW") || strings.HasPrefix(s, "PRAGMA")
}

func printResultSet(rs *client.ResultSet) {
	fmt.Println(strings.Join(rs.Columns, "\t"))
	for _, row := range rs.Rows {
		parts := make([]string, len(row))
		for i, v := range row {
			if v == nil {
				parts[i] = "NULL"
			} else {
				parts[i] = fmt.Sprint(v)
			}
		}
		fmt.Println(strings.Join(parts, "\t"))
	}
	fmt.Printf("(%d rows)\n", len(rs.Rows))
}
