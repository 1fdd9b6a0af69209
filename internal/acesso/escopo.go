package acesso

import "github.com/google/uuid"

// Escopo é o predicado sobre denúncias derivado do ator. Todas as leituras
// (lista, detalhe, estatísticas, relatórios, exportação) passam por ele.
type Escopo struct {
	// Todas libera qualquer denúncia.
	Todas bool
	// Nenhuma bloqueia qualquer denúncia.
	Nenhuma bool
	// EmpresaID restringe ao tenant.
	EmpresaID *uuid.UUID
	// AutorID, quando presente, exige autoria ou anonimato dentro do tenant.
	AutorID *uuid.UUID
}

// EscopoPara deriva o escopo de leitura de denúncias do ator.
func EscopoPara(ator *Ator) Escopo {
	if ator == nil || !ator.Papel.Valido() {
		return Escopo{Nenhuma: true}
	}
	switch AlcanceDe(ator.Papel, VerDenuncia) {
	case Todas:
		return Escopo{Todas: true}
	case Empresa:
		if ator.EmpresaID == nil {
			return Escopo{Nenhuma: true}
		}
		return Escopo{EmpresaID: copiaID(ator.EmpresaID)}
	case Autoria:
		if ator.EmpresaID == nil {
			return Escopo{Nenhuma: true}
		}
		id := ator.ID
		return Escopo{EmpresaID: copiaID(ator.EmpresaID), AutorID: &id}
	}
	return Escopo{Nenhuma: true}
}

// Permite avalia o escopo contra uma denúncia concreta.
func (e Escopo) Permite(alvo Alvo) bool {
	switch {
	case e.Nenhuma:
		return false
	case e.Todas:
		return true
	}
	if e.EmpresaID == nil || alvo.EmpresaID == nil || *e.EmpresaID != *alvo.EmpresaID {
		return false
	}
	if e.AutorID == nil {
		return true
	}
	if alvo.Anonima {
		return true
	}
	return alvo.AutorID != nil && *alvo.AutorID == *e.AutorID
}

// RestringirEmpresa estreita um escopo irrestrito a um tenant. Escopos já
// restritos a outro tenant viram vazios.
func (e Escopo) RestringirEmpresa(empresaID uuid.UUID) Escopo {
	if e.Nenhuma {
		return e
	}
	if e.Todas {
		return Escopo{EmpresaID: &empresaID}
	}
	if e.EmpresaID != nil && *e.EmpresaID != empresaID {
		return Escopo{Nenhuma: true}
	}
	return e
}

func copiaID(id *uuid.UUID) *uuid.UUID {
	if id == nil {
		return nil
	}
	v := *id
	return &v
}
