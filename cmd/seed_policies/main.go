// seed_policies genera el script SQL con los overrides de tipos de movimentação
// de un tenant a partir del XML de políticas exportado por el ERP (ISO-8859-1).
//
// Uso: go run ./cmd/seed_policies [ruta/politicas.xml] [salida.sql]
// Por defecto lee politicas.xml del directorio actual y escribe en
// internal/infrastructure/postgres/migrations/100_politicas_<tenant>.sql.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jhoicas/estoque-api/internal/domain/inventory"
)

func main() {
	xmlPath := "politicas.xml"
	if len(os.Args) > 1 {
		xmlPath = os.Args[1]
	}
	f, err := os.Open(xmlPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Abrir XML: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	tenant, types, err := parsePolicies(f, inventory.DefaultMovementTypes())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Políticas: %v\n", err)
		os.Exit(1)
	}

	outPath := filepath.Join(findModuleRoot(), "internal", "infrastructure", "postgres", "migrations",
		fmt.Sprintf("100_politicas_%s.sql", tenant))
	if len(os.Args) > 2 {
		outPath = os.Args[2]
	}
	out, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Crear archivo: %v\n", err)
		os.Exit(1)
	}
	defer out.Close()

	if err := writeSQL(out, tenant, filepath.Base(xmlPath), types); err != nil {
		fmt.Fprintf(os.Stderr, "Escribir SQL: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generado %s: %d tipos para %s\n", outPath, len(types), tenant)
}

func findModuleRoot() string {
	dir, _ := os.Getwd()
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
