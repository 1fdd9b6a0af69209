package acesso

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	empresaA = uuid.MustParse("0b9c0f55-0000-4000-8000-00000000000a")
	empresaB = uuid.MustParse("0b9c0f55-0000-4000-8000-00000000000b")
)

func ator(p Papel, empresa *uuid.UUID) *Ator {
	a := &Ator{ID: uuid.New(), Papel: p}
	if p != SuperAdmin {
		a.EmpresaID = empresa
	}
	return a
}

func ptr(id uuid.UUID) *uuid.UUID { return &id }

func TestParsePapel(t *testing.T) {
	p, err := ParsePapel("  Admin_Cliente ")
	require.NoError(t, err)
	assert.Equal(t, AdminCliente, p)

	_, err = ParsePapel("root")
	assert.ErrorIs(t, err, ErrPapelInvalido)

	assert.True(t, SuperAdmin.Privilegiado())
	assert.True(t, AdminCliente.Privilegiado())
	for _, p := range []Papel{Auditoria, Gerente, Cliente} {
		assert.False(t, p.Privilegiado(), p)
	}
}

func TestCanAccessDenunciaMatrix(t *testing.T) {
	outroAutor := uuid.New()

	type caso struct {
		alvo      func(a *Ator) Alvo
		ver       map[Papel]bool
		alterar   map[Papel]bool
		descricao string
	}

	casos := []caso{
		{
			descricao: "denúncia identificada de outro autor no mesmo tenant",
			alvo:      func(*Ator) Alvo { return Alvo{EmpresaID: ptr(empresaA), AutorID: &outroAutor} },
			ver:       map[Papel]bool{SuperAdmin: true, AdminCliente: true, Auditoria: true, Gerente: true, Cliente: false},
			alterar:   map[Papel]bool{SuperAdmin: true, AdminCliente: true, Auditoria: true, Gerente: false, Cliente: false},
		},
		{
			descricao: "denúncia do próprio ator",
			alvo: func(a *Ator) Alvo {
				return Alvo{EmpresaID: ptr(empresaA), AutorID: &a.ID}
			},
			ver:     map[Papel]bool{SuperAdmin: true, AdminCliente: true, Auditoria: true, Gerente: true, Cliente: true},
			alterar: map[Papel]bool{SuperAdmin: true, AdminCliente: true, Auditoria: true, Gerente: false, Cliente: false},
		},
		{
			descricao: "denúncia anônima do mesmo tenant",
			alvo:      func(*Ator) Alvo { return Alvo{EmpresaID: ptr(empresaA), Anonima: true} },
			ver:       map[Papel]bool{SuperAdmin: true, AdminCliente: true, Auditoria: true, Gerente: true, Cliente: true},
			alterar:   map[Papel]bool{SuperAdmin: true, AdminCliente: true, Auditoria: true, Gerente: false, Cliente: false},
		},
		{
			descricao: "denúncia anônima de outro tenant",
			alvo:      func(*Ator) Alvo { return Alvo{EmpresaID: ptr(empresaB), Anonima: true} },
			ver:       map[Papel]bool{SuperAdmin: true, AdminCliente: false, Auditoria: false, Gerente: false, Cliente: false},
			alterar:   map[Papel]bool{SuperAdmin: true, AdminCliente: false, Auditoria: false, Gerente: false, Cliente: false},
		},
		{
			descricao: "denúncia identificada de outro tenant",
			alvo:      func(*Ator) Alvo { return Alvo{EmpresaID: ptr(empresaB), AutorID: &outroAutor} },
			ver:       map[Papel]bool{SuperAdmin: true, AdminCliente: false, Auditoria: false, Gerente: false, Cliente: false},
			alterar:   map[Papel]bool{SuperAdmin: true, AdminCliente: false, Auditoria: false, Gerente: false, Cliente: false},
		},
	}

	for _, c := range casos {
		for _, p := range Papeis() {
			a := ator(p, ptr(empresaA))
			alvo := c.alvo(a)
			assert.Equal(t, c.ver[p], CanAccess(a, VerDenuncia, alvo), "%s ver: %s", p, c.descricao)
			assert.Equal(t, c.alterar[p], CanAccess(a, AlterarStatusDenuncia, alvo), "%s alterar: %s", p, c.descricao)
			assert.Equal(t, c.ver[p], EscopoPara(a).Permite(alvo), "%s escopo: %s", p, c.descricao)
		}
	}
}

func TestCanAccessOrigemDenunciaAnonima(t *testing.T) {
	mesmo := Alvo{EmpresaID: ptr(empresaA), Anonima: true}
	outro := Alvo{EmpresaID: ptr(empresaB), Anonima: true}

	esperado := map[Papel]bool{SuperAdmin: true, AdminCliente: true, Auditoria: true, Gerente: false, Cliente: false}
	for papel, pode := range esperado {
		a := ator(papel, ptr(empresaA))
		assert.Equal(t, pode, CanAccess(a, VerOrigemDenuncia, mesmo), papel)
		assert.Equal(t, papel == SuperAdmin, CanAccess(a, VerOrigemDenuncia, outro), papel)
	}
	assert.False(t, CanAccess(nil, VerOrigemDenuncia, mesmo))
}

func TestCanAccessEmpresaMatrix(t *testing.T) {
	proprio := Alvo{EmpresaID: ptr(empresaA)}
	outro := Alvo{EmpresaID: ptr(empresaB)}

	esperado := map[Operacao]map[Papel][2]bool{
		VerEmpresa: {
			SuperAdmin: {true, true}, AdminCliente: {true, false}, Auditoria: {true, false},
			Gerente: {false, false}, Cliente: {false, false},
		},
		VerPersonalizacao: {
			SuperAdmin: {true, true}, AdminCliente: {true, false}, Auditoria: {true, false},
			Gerente: {true, false}, Cliente: {true, false},
		},
		CriarEmpresa: {
			SuperAdmin: {true, true}, AdminCliente: {false, false}, Auditoria: {false, false},
			Gerente: {false, false}, Cliente: {false, false},
		},
		AtualizarEmpresa: {
			SuperAdmin: {true, true}, AdminCliente: {true, false}, Auditoria: {false, false},
			Gerente: {false, false}, Cliente: {false, false},
		},
		AlterarCadastroEmpresa: {
			SuperAdmin: {true, true}, AdminCliente: {false, false}, Auditoria: {false, false},
			Gerente: {false, false}, Cliente: {false, false},
		},
		RelatorioGlobal: {
			SuperAdmin: {true, true}, AdminCliente: {false, false}, Auditoria: {false, false},
			Gerente: {false, false}, Cliente: {false, false},
		},
	}

	for op, porPapel := range esperado {
		for p, want := range porPapel {
			a := ator(p, ptr(empresaA))
			assert.Equal(t, want[0], CanAccess(a, op, proprio), "%s %s próprio tenant", p, op)
			assert.Equal(t, want[1], CanAccess(a, op, outro), "%s %s outro tenant", p, op)
		}
	}
}

func TestCanAccessUsuarioRules(t *testing.T) {
	admin := ator(AdminCliente, ptr(empresaA))
	outroAdmin := uuid.New()

	assert.True(t, CanAccess(admin, GerenciarUsuario, Alvo{EmpresaID: ptr(empresaA), UsuarioID: ptr(uuid.New()), Papel: Gerente}))
	assert.False(t, CanAccess(admin, GerenciarUsuario, Alvo{EmpresaID: ptr(empresaB), UsuarioID: ptr(uuid.New()), Papel: Gerente}))
	assert.False(t, CanAccess(admin, GerenciarUsuario, Alvo{EmpresaID: ptr(empresaA), UsuarioID: &outroAdmin, Papel: AdminCliente}))
	assert.True(t, CanAccess(admin, GerenciarUsuario, Alvo{EmpresaID: ptr(empresaA), UsuarioID: &admin.ID, Papel: AdminCliente}))

	assert.True(t, CanAccess(admin, AtribuirPapel, Alvo{EmpresaID: ptr(empresaA), Papel: Cliente}))
	assert.False(t, CanAccess(admin, AtribuirPapel, Alvo{EmpresaID: ptr(empresaA), Papel: AdminCliente}))
	assert.False(t, CanAccess(admin, AtribuirPapel, Alvo{EmpresaID: ptr(empresaA), Papel: SuperAdmin}))
	assert.False(t, CanAccess(admin, AtribuirPapel, Alvo{EmpresaID: ptr(empresaB), Papel: Cliente}))

	super := ator(SuperAdmin, nil)
	assert.True(t, CanAccess(super, AtribuirPapel, Alvo{Papel: SuperAdmin}))
	assert.True(t, CanAccess(super, GerenciarUsuario, Alvo{EmpresaID: ptr(empresaB), UsuarioID: &outroAdmin, Papel: AdminCliente}))

	for _, p := range []Papel{Auditoria, Gerente, Cliente} {
		a := ator(p, ptr(empresaA))
		assert.False(t, CanAccess(a, VerUsuario, Alvo{EmpresaID: ptr(empresaA)}), p)
		assert.False(t, CanAccess(a, GerenciarUsuario, Alvo{EmpresaID: ptr(empresaA), Papel: Cliente}), p)
		assert.False(t, CanAccess(a, AtribuirPapel, Alvo{EmpresaID: ptr(empresaA), Papel: Cliente}), p)
	}
}

func TestCanAccessCategoria(t *testing.T) {
	global := Alvo{}
	propria := Alvo{EmpresaID: ptr(empresaA)}
	alheia := Alvo{EmpresaID: ptr(empresaB)}

	super := ator(SuperAdmin, nil)
	assert.True(t, CanAccess(super, GerenciarCategoria, global))
	assert.True(t, CanAccess(super, GerenciarCategoria, alheia))

	admin := ator(AdminCliente, ptr(empresaA))
	assert.True(t, CanAccess(admin, GerenciarCategoria, global))
	assert.True(t, CanAccess(admin, GerenciarCategoria, propria))
	assert.False(t, CanAccess(admin, GerenciarCategoria, alheia))

	for _, p := range []Papel{Auditoria, Gerente, Cliente} {
		assert.False(t, CanAccess(ator(p, ptr(empresaA)), GerenciarCategoria, global), p)
	}
}

func TestCanAccessRejectsMissingActor(t *testing.T) {
	assert.False(t, CanAccess(nil, VerDenuncia, Alvo{EmpresaID: ptr(empresaA)}))
	assert.False(t, CanAccess(&Ator{ID: uuid.New(), Papel: "root"}, VerDenuncia, Alvo{EmpresaID: ptr(empresaA)}))

	semEmpresa := &Ator{ID: uuid.New(), Papel: Gerente}
	assert.False(t, CanAccess(semEmpresa, VerDenuncia, Alvo{EmpresaID: ptr(empresaA)}))
	assert.True(t, EscopoPara(semEmpresa).Nenhuma)
}

func TestEscopoRestringirEmpresa(t *testing.T) {
	super := EscopoPara(ator(SuperAdmin, nil))
	require.True(t, super.Todas)

	restrito := super.RestringirEmpresa(empresaB)
	assert.False(t, restrito.Todas)
	assert.Equal(t, empresaB, *restrito.EmpresaID)

	gerente := EscopoPara(ator(Gerente, ptr(empresaA)))
	assert.True(t, gerente.RestringirEmpresa(empresaB).Nenhuma)
	assert.Equal(t, gerente, gerente.RestringirEmpresa(empresaA))
}
