// statements.go contains the statement nodes. A statement performs a
// declaration or an action and does not itself produce a value.

package ast

import "github.com/ReggieRumsfeld/zinc/token"

// Stmt is the marker interface implemented by every statement node.
type Stmt interface {
	isStatement()
}

// Field is one `name: type` pair of a function signature, struct body or
// contract storage.
type Field struct {
	Location   token.Location
	Identifier string
	Type       Type
}

// Variant is one enumeration variant with its constant value literal.
type Variant struct {
	Location   token.Location
	Identifier string
	Value      IntegerLiteral
}

// LetStmt is a variable declaration:
// `let [mut] name [: type] = expression;`.
type LetStmt struct {
	Location   token.Location
	Identifier string
	Mutable    bool
	Type       *Type
	Expression Expression
}

func (LetStmt) isStatement() {}

// FnStmt is a function declaration. Methods of contracts set IsPublic from
// the `pub` modifier; public methods become callable entries of the built
// application.
type FnStmt struct {
	Location   token.Location
	IsPublic   bool
	Identifier string
	// HasSelf and SelfMutable record a `self` / `mut self` receiver;
	// `mut self` marks a contract method as storage-mutating.
	HasSelf     bool
	SelfMutable bool
	Arguments   []Field
	ReturnType  *Type
	Body        BlockExpression
}

func (FnStmt) isStatement() {}

// StructStmt is a structure type declaration.
type StructStmt struct {
	Location   token.Location
	Identifier string
	Fields     []Field
}

func (StructStmt) isStatement() {}

// EnumStmt is an enumeration type declaration.
type EnumStmt struct {
	Location   token.Location
	Identifier string
	Variants   []Variant
}

func (EnumStmt) isStatement() {}

// TypeStmt is a type alias declaration: `type Name = type;`.
type TypeStmt struct {
	Location   token.Location
	Identifier string
	Type       Type
}

func (TypeStmt) isStatement() {}

// ModStmt is a module declaration: `mod name;`.
type ModStmt struct {
	Location   token.Location
	Identifier string
}

func (ModStmt) isStatement() {}

// UseStmt is an import declaration: `use path::to::item;`.
type UseStmt struct {
	Location token.Location
	Path     Expression
}

func (UseStmt) isStatement() {}

// ForStmt is a bounded range loop:
// `for name in start..end [while condition] { ... }`.
// The range bounds must be compile-time constants.
type ForStmt struct {
	Location   token.Location
	Identifier string
	Range      Expression
	While      *Expression
	Body       BlockExpression
}

func (ForStmt) isStatement() {}

// ContractStmt is a contract declaration: ordered storage fields followed by
// methods.
type ContractStmt struct {
	Location   token.Location
	Identifier string
	Fields     []Field
	Methods    []FnStmt
}

func (ContractStmt) isStatement() {}

// ImplStmt is an implementation block attaching functions to a structure or
// enumeration namespace.
type ImplStmt struct {
	Location   token.Location
	Identifier string
	Functions  []FnStmt
}

func (ImplStmt) isStatement() {}

// ExpressionStmt is an expression used as a statement, including place
// assignments such as `x = y + 1;`.
type ExpressionStmt struct {
	Location   token.Location
	Expression Expression
}

func (ExpressionStmt) isStatement() {}
