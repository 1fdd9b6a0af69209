package acesso

import "github.com/google/uuid"

// Operacao nomeia uma capacidade verificável pelo predicado.
type Operacao string

const (
	VerDenuncia           Operacao = "denuncia.ver"
	AlterarStatusDenuncia Operacao = "denuncia.alterar_status"
	// VerOrigemDenuncia libera o ip_origem de denúncias anônimas.
	VerOrigemDenuncia Operacao = "denuncia.ver_origem"

	VerEmpresa             Operacao = "empresa.ver"
	VerPersonalizacao      Operacao = "empresa.ver_personalizacao"
	CriarEmpresa           Operacao = "empresa.criar"
	AtualizarEmpresa       Operacao = "empresa.atualizar"
	AlterarCadastroEmpresa Operacao = "empresa.alterar_cadastro"

	VerUsuario       Operacao = "usuario.ver"
	GerenciarUsuario Operacao = "usuario.gerenciar"
	AtribuirPapel    Operacao = "usuario.atribuir_papel"

	GerenciarCategoria Operacao = "categoria.gerenciar"

	RelatorioGlobal Operacao = "relatorio.global"
)

// Alcance delimita sobre quais alvos uma capacidade vale.
type Alcance int

const (
	Nenhum Alcance = iota
	// Autoria: próprias denúncias ou anônimas do próprio tenant.
	Autoria
	Empresa
	// EmpresaOuGlobal: próprio tenant ou registros sem tenant.
	EmpresaOuGlobal
	Todas
)

var matriz = map[Papel]map[Operacao]Alcance{
	SuperAdmin: {
		VerDenuncia:            Todas,
		AlterarStatusDenuncia:  Todas,
		VerOrigemDenuncia:      Todas,
		VerEmpresa:             Todas,
		VerPersonalizacao:      Todas,
		CriarEmpresa:           Todas,
		AtualizarEmpresa:       Todas,
		AlterarCadastroEmpresa: Todas,
		VerUsuario:             Todas,
		GerenciarUsuario:       Todas,
		AtribuirPapel:          Todas,
		GerenciarCategoria:     Todas,
		RelatorioGlobal:        Todas,
	},
	AdminCliente: {
		VerDenuncia:           Empresa,
		AlterarStatusDenuncia: Empresa,
		VerOrigemDenuncia:     Empresa,
		VerEmpresa:            Empresa,
		VerPersonalizacao:     Empresa,
		AtualizarEmpresa:      Empresa,
		VerUsuario:            Empresa,
		GerenciarUsuario:      Empresa,
		AtribuirPapel:         Empresa,
		GerenciarCategoria:    EmpresaOuGlobal,
	},
	Auditoria: {
		VerDenuncia:           Empresa,
		AlterarStatusDenuncia: Empresa,
		VerOrigemDenuncia:     Empresa,
		VerEmpresa:            Empresa,
		VerPersonalizacao:     Empresa,
	},
	Gerente: {
		VerDenuncia:       Empresa,
		VerPersonalizacao: Empresa,
	},
	Cliente: {
		VerDenuncia:       Autoria,
		VerPersonalizacao: Empresa,
	},
}

// AlcanceDe devolve o alcance do papel para a operação.
func AlcanceDe(p Papel, op Operacao) Alcance {
	return matriz[p][op]
}

// Alvo descreve a entidade sobre a qual a operação incide. Apenas os campos
// relevantes para a operação precisam ser preenchidos.
type Alvo struct {
	EmpresaID *uuid.UUID
	// AutorID é o usuario_id da denúncia.
	AutorID *uuid.UUID
	Anonima bool
	// UsuarioID e Papel identificam a identidade alvo (ou o papel atribuído).
	UsuarioID *uuid.UUID
	Papel     Papel
}

// CanAccess é o único predicado de autorização. Puro, sem efeitos colaterais.
func CanAccess(ator *Ator, op Operacao, alvo Alvo) bool {
	if ator == nil || !ator.Papel.Valido() {
		return false
	}

	switch AlcanceDe(ator.Papel, op) {
	case Todas:
		return true
	case Empresa:
		if !ator.MesmaEmpresa(alvo.EmpresaID) {
			return false
		}
	case EmpresaOuGlobal:
		if alvo.EmpresaID != nil && !ator.MesmaEmpresa(alvo.EmpresaID) {
			return false
		}
		if alvo.EmpresaID == nil && ator.EmpresaID == nil {
			return false
		}
	case Autoria:
		return EscopoPara(ator).Permite(alvo)
	default:
		return false
	}

	return restricaoPapel(ator, op, alvo)
}

// restricaoPapel aplica as regras de identidade que não dependem só do tenant:
// fora do super_admin, papéis privilegiados não são atribuídos nem editados,
// salvo a própria identidade.
func restricaoPapel(ator *Ator, op Operacao, alvo Alvo) bool {
	if ator.Papel == SuperAdmin {
		return true
	}
	switch op {
	case AtribuirPapel:
		return !alvo.Papel.Privilegiado()
	case GerenciarUsuario:
		if !alvo.Papel.Privilegiado() {
			return true
		}
		return alvo.UsuarioID != nil && *alvo.UsuarioID == ator.ID
	}
	return true
}
