package main

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/beevik/etree"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/jhoicas/estoque-api/internal/domain/entity"
)

// parsePolicies lee el XML de políticas exportado por el ERP de la rede:
//
//	<politicas tenant="farmacia-1">
//	  <tipo codigo="PERDA" descricao="Perda ou avaria" sentido="OUT" ativo="true">
//	    <exige aprovacao="true" notaFiscal="false" fornecedor="false" lote="false"/>
//	    <controlados permitido="false"/>
//	  </tipo>
//	</politicas>
//
// Atributos ausentes toman el valor del tipo global homónimo si existe.
func parsePolicies(r io.Reader, defaults []entity.MovementType) (string, []entity.MovementType, error) {
	doc := etree.NewDocument()
	doc.ReadSettings.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
		if strings.EqualFold(charset, "ISO-8859-1") || strings.EqualFold(charset, "ISO8859-1") {
			return transform.NewReader(input, charmap.ISO8859_1.NewDecoder()), nil
		}
		return input, nil
	}
	if _, err := doc.ReadFrom(r); err != nil {
		return "", nil, fmt.Errorf("decodificar XML: %w", err)
	}
	root := doc.SelectElement("politicas")
	if root == nil {
		return "", nil, fmt.Errorf("falta el elemento <politicas>")
	}
	tenant := strings.TrimSpace(root.SelectAttrValue("tenant", ""))
	if tenant == "" {
		return "", nil, fmt.Errorf("<politicas> sin atributo tenant")
	}

	base := make(map[string]entity.MovementType, len(defaults))
	for _, t := range defaults {
		base[t.Code] = t
	}

	var types []entity.MovementType
	seen := make(map[string]bool)
	for i, el := range root.SelectElements("tipo") {
		code := strings.ToUpper(strings.TrimSpace(el.SelectAttrValue("codigo", "")))
		if code == "" {
			return "", nil, fmt.Errorf("tipo #%d sin código", i+1)
		}
		if seen[code] {
			return "", nil, fmt.Errorf("tipo %s repetido", code)
		}
		seen[code] = true

		t, ok := base[code]
		if !ok {
			t = entity.MovementType{Code: code, AllowsControlledSubstances: true, Active: true}
		}
		t.TenantID = tenant
		t.Version = 1
		t.Lifecycle = entity.LifecycleActive
		t.Description = el.SelectAttrValue("descricao", t.Description)
		if dir := el.SelectAttrValue("sentido", ""); dir != "" {
			t.Direction = entity.Direction(strings.ToUpper(dir))
		}
		if !t.Direction.Valid() {
			return "", nil, fmt.Errorf("tipo %s: sentido inválido %q", code, t.Direction)
		}

		var err error
		if t.Active, err = boolAttr(el, "ativo", t.Active); err != nil {
			return "", nil, fmt.Errorf("tipo %s: %w", code, err)
		}
		if req := el.SelectElement("exige"); req != nil {
			for attr, dst := range map[string]*bool{
				"aprovacao":  &t.RequiresApproval,
				"notaFiscal": &t.RequiresInvoice,
				"fornecedor": &t.RequiresSupplier,
				"lote":       &t.RequiresLot,
			} {
				if *dst, err = boolAttr(req, attr, *dst); err != nil {
					return "", nil, fmt.Errorf("tipo %s: %w", code, err)
				}
			}
		}
		if ctrl := el.SelectElement("controlados"); ctrl != nil {
			if t.AllowsControlledSubstances, err = boolAttr(ctrl, "permitido", t.AllowsControlledSubstances); err != nil {
				return "", nil, fmt.Errorf("tipo %s: %w", code, err)
			}
		}
		if !t.Active {
			t.Lifecycle = entity.LifecycleSoftDeleted
		}
		types = append(types, t)
	}
	if len(types) == 0 {
		return "", nil, fmt.Errorf("el XML no trae ningún <tipo>")
	}
	sort.Slice(types, func(i, j int) bool { return types[i].Code < types[j].Code })
	return tenant, types, nil
}

func boolAttr(el *etree.Element, key string, def bool) (bool, error) {
	raw := strings.TrimSpace(el.SelectAttrValue(key, ""))
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(raw) {
	case "sim", "s":
		return true, nil
	case "nao", "não", "n":
		return false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("atributo %s: valor %q no es booleano", key, raw)
	}
	return v, nil
}

// writeSQL genera el script idempotente de overrides del tenant.
func writeSQL(w io.Writer, tenant, source string, types []entity.MovementType) error {
	var b strings.Builder
	fmt.Fprintf(&b, "-- Políticas de movimentação del tenant %s\n", tenant)
	fmt.Fprintf(&b, "-- Generado desde %s\n\n", source)
	for _, t := range types {
		b.WriteString("INSERT INTO movement_types (tenant_id, code, description, direction, requires_approval, requires_invoice,\n")
		b.WriteString("                            requires_supplier, requires_lot, allows_controlled_substances, active, lifecycle)\n")
		fmt.Fprintf(&b, "VALUES ('%s', '%s', '%s', '%s', %t, %t, %t, %t, %t, %t, '%s')\n",
			escapeSQL(t.TenantID), escapeSQL(t.Code), escapeSQL(t.Description), t.Direction,
			t.RequiresApproval, t.RequiresInvoice, t.RequiresSupplier, t.RequiresLot,
			t.AllowsControlledSubstances, t.Active, t.Lifecycle)
		b.WriteString("ON CONFLICT (tenant_id, code) DO UPDATE SET\n")
		b.WriteString("    description = EXCLUDED.description, direction = EXCLUDED.direction,\n")
		b.WriteString("    requires_approval = EXCLUDED.requires_approval, requires_invoice = EXCLUDED.requires_invoice,\n")
		b.WriteString("    requires_supplier = EXCLUDED.requires_supplier, requires_lot = EXCLUDED.requires_lot,\n")
		b.WriteString("    allows_controlled_substances = EXCLUDED.allows_controlled_substances,\n")
		b.WriteString("    active = EXCLUDED.active, lifecycle = EXCLUDED.lifecycle,\n")
		b.WriteString("    version = movement_types.version + 1, updated_at = now();\n\n")
	}
	_, err := io.WriteString(w, b.String())
	return err
}

func escapeSQL(s string) string {
	return strings.ReplaceAll(s, "'", "''")
}
