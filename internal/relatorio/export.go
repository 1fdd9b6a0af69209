package relatorio

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/gestaozabele/denuncias/internal/denuncia"
)

const sheetName = "Denúncias"

// Cabecalho são as colunas das exportações em planilha.
var Cabecalho = []string{
	"Protocolo", "Título", "Categoria", "Subcategoria", "Status",
	"Prioridade", "Data Criação", "Anônima", "Origem",
}

var columnWidths = []float64{22, 40, 22, 22, 14, 12, 18, 10, 12}

// linha formata uma denúncia na ordem do Cabecalho.
func linha(d denuncia.Denuncia) []string {
	subcategoria := ""
	if d.Subcategoria != nil {
		subcategoria = *d.Subcategoria
	}
	anonima := "Não"
	if d.Anonima {
		anonima = "Sim"
	}
	return []string{
		d.Protocolo,
		d.Titulo,
		d.Categoria,
		subcategoria,
		d.Status,
		d.Prioridade,
		d.CreatedAt.UTC().Format("02/01/2006 15:04"),
		anonima,
		d.Origem,
	}
}

// GerarCSV monta o CSV com BOM UTF-8 para abrir acentuado no Excel.
func GerarCSV(denuncias []denuncia.Denuncia) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("\ufeff")

	w := csv.NewWriter(&buf)
	if err := w.Write(Cabecalho); err != nil {
		return nil, err
	}
	for _, d := range denuncias {
		if err := w.Write(linha(d)); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// GerarXLSX monta a planilha com cabeçalho fixo e destacado.
func GerarXLSX(denuncias []denuncia.Denuncia) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("renomear planilha: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6F3FF"}, Pattern: 1},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("estilo do cabeçalho: %w", err)
	}

	header := make([]any, len(Cabecalho))
	for i, h := range Cabecalho {
		header[i] = h
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("cabeçalho: %w", err)
	}
	last, err := excelize.CoordinatesToCellName(len(Cabecalho), 1)
	if err != nil {
		return nil, err
	}
	if err := f.SetCellStyle(sheetName, "A1", last, headerStyle); err != nil {
		return nil, fmt.Errorf("aplicar estilo: %w", err)
	}

	for i, width := range columnWidths {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			return nil, err
		}
		if err := f.SetColWidth(sheetName, col, col, width); err != nil {
			return nil, fmt.Errorf("largura da coluna %s: %w", col, err)
		}
	}

	for i, d := range denuncias {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		valores := linha(d)
		row := make([]any, len(valores))
		for j, v := range valores {
			row[j] = v
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("linha %d: %w", i+2, err)
		}
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		return nil, fmt.Errorf("congelar cabeçalho: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("gravar planilha: %w", err)
	}
	return buf.Bytes(), nil
}

func nomeArquivo(formato string, now time.Time) string {
	return fmt.Sprintf("denuncias_%s.%s", now.UTC().Format("20060102_150405"), formato)
}
