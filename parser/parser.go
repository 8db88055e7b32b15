// Recursive descent parser
// https://en.wikipedia.org/wiki/Recursive_descent_parser
//
// A recursive descent parser is a top-down parser: it starts from the top
// grammar rule and works its way down into the nested sub-expressions before
// reaching the leaves of the syntax tree (terminal rules). Expressions are
// produced in Reverse-Polish order: operands first, then the operator
// element whose location is the operator token's location.
package parser

import (
	"fmt"

	"github.com/ReggieRumsfeld/zinc/ast"
	"github.com/ReggieRumsfeld/zinc/token"
)

type Parser struct {
	tokens   []token.Token
	position int

	// Structure literals are forbidden while parsing the condition of an
	// `if`, a `for` bound or a `match` scrutinee, where `{` starts the body.
	noStructLiteral bool
}

// Make initializes and returns a new Parser instance over the tokens
// produced by the lexer.
func Make(tokens []token.Token) *Parser {
	return &Parser{
		tokens:   tokens,
		position: 0,
	}
}

// Peeks the token at the parser's current position,
// without advancing the parser's position.
func (parser *Parser) peek() token.Token {
	return parser.tokens[parser.position]
}

// Retrieves the token at the parser's previous position
// (position - 1).
func (parser *Parser) previous() token.Token {
	return parser.tokens[parser.position-1]
}

// Increments the parser's position by one unit and
// consumes the current token.
func (parser *Parser) advance() token.Token {
	if !parser.isFinished() {
		parser.position++
	}
	return parser.previous()
}

// Determines if the parser has finished scanning all the tokens.
func (parser *Parser) isFinished() bool {
	return parser.peek().TokenType == token.EOF
}

// Determines if the provided tokenType matches the TokenType
// at the parser's current position.
func (parser *Parser) checkType(tokenType token.TokenType) bool {
	if parser.isFinished() {
		return false
	}
	return parser.peek().TokenType == tokenType
}

// Determines if the TokenType at the current
// position matches any of the provided tokenTypes. If a match is
// found the parser increments its position and consumes the
// current token.
func (parser *Parser) isMatch(tokenTypes []token.TokenType) bool {
	for i := range tokenTypes {
		if parser.checkType(tokenTypes[i]) {
			parser.advance()
			return true
		}
	}
	return false
}

// Consumes the current token by advancing the parser's current position by
// one unit if the `tokenType` matches the token type of the parser's current
// position. Returns a SyntaxError otherwise.
func (parser *Parser) consume(tokenType token.TokenType, errorMessage string) (token.Token, error) {
	if parser.checkType(tokenType) {
		return parser.advance(), nil
	}
	currentToken := parser.peek()
	return token.Token{}, CreateSyntaxError(currentToken.Location, errorMessage)
}

// ParseExpression parses the token stream as a single expression, for the
// REPL. The expression must consume every token up to EOF.
func (parser *Parser) ParseExpression() (ast.Expression, error) {
	expression, err := parser.expression()
	if err != nil {
		return ast.Expression{}, err
	}
	if !parser.isFinished() {
		currentToken := parser.peek()
		return ast.Expression{}, CreateSyntaxError(currentToken.Location,
			fmt.Sprintf("unexpected '%s' after the expression", currentToken.Lexeme))
	}
	return expression, nil
}

// Parse parses the entire token stream into a slice of statement nodes.
// The first syntax error terminates parsing.
func (parser *Parser) Parse() ([]ast.Stmt, error) {
	statements := []ast.Stmt{}

	for !parser.isFinished() {
		statement, err := parser.moduleStatement()
		if err != nil {
			return nil, err
		}
		statements = append(statements, statement)
	}

	return statements, nil
}

// moduleStatement parses a top-level declaration: `fn`, `struct`, `enum`,
// `type`, `mod`, `use`, `contract`, `impl` or `let`.
func (parser *Parser) moduleStatement() (ast.Stmt, error) {
	switch {
	case parser.isMatch([]token.TokenType{token.FUNC}):
		fn, err := parser.fnStatement(false)
		if err != nil {
			return nil, err
		}
		return fn, nil
	case parser.isMatch([]token.TokenType{token.PUB}):
		if _, err := parser.consume(token.FUNC, "expected 'fn' after 'pub'"); err != nil {
			return nil, err
		}
		fn, err := parser.fnStatement(true)
		if err != nil {
			return nil, err
		}
		return fn, nil
	case parser.isMatch([]token.TokenType{token.STRUCT}):
		return parser.structStatement()
	case parser.isMatch([]token.TokenType{token.ENUM}):
		return parser.enumStatement()
	case parser.isMatch([]token.TokenType{token.TYPE}):
		return parser.typeStatement()
	case parser.isMatch([]token.TokenType{token.MOD}):
		return parser.modStatement()
	case parser.isMatch([]token.TokenType{token.USE}):
		return parser.useStatement()
	case parser.isMatch([]token.TokenType{token.CONTRACT}):
		return parser.contractStatement()
	case parser.isMatch([]token.TokenType{token.IMPL}):
		return parser.implStatement()
	case parser.isMatch([]token.TokenType{token.LET}):
		return parser.letStatement()
	}
	currentToken := parser.peek()
	return nil, CreateSyntaxError(currentToken.Location,
		fmt.Sprintf("expected a declaration, found '%s'", currentToken.Lexeme))
}

// letStatement parses a variable declaration statement:
// `let [mut] name [: type] = expression;`.
func (parser *Parser) letStatement() (ast.Stmt, error) {
	location := parser.previous().Location
	mutable := parser.isMatch([]token.TokenType{token.MUT})

	name, err := parser.consume(token.IDENTIFIER, "expected variable name")
	if err != nil {
		return nil, err
	}

	var declared *ast.Type
	if parser.isMatch([]token.TokenType{token.COLON}) {
		parsed, err := parser.typeNode()
		if err != nil {
			return nil, err
		}
		declared = &parsed
	}

	if _, err := parser.consume(token.ASSIGN, "expected '=' after variable name"); err != nil {
		return nil, err
	}

	expression, err := parser.expression()
	if err != nil {
		return nil, err
	}

	if _, err := parser.consume(token.SEMICOLON, "expected ';' after variable declaration"); err != nil {
		return nil, err
	}

	return ast.LetStmt{
		Location:   location,
		Identifier: name.Lexeme,
		Mutable:    mutable,
		Type:       declared,
		Expression: expression,
	}, nil
}

// fnStatement parses a function declaration. The `fn` keyword has already
// been consumed; `isPublic` records a preceding `pub` modifier.
func (parser *Parser) fnStatement(isPublic bool) (ast.FnStmt, error) {
	location := parser.previous().Location

	name, err := parser.consume(token.IDENTIFIER, "expected function name")
	if err != nil {
		return ast.FnStmt{}, err
	}

	if _, err := parser.consume(token.LPA, "expected '(' after function name"); err != nil {
		return ast.FnStmt{}, err
	}

	arguments := []ast.Field{}
	hasSelf := false
	selfMutable := false
	for !parser.checkType(token.RPA) {
		// `self` and `mut self` receivers carry no type; the contract scope
		// binds `self` itself.
		if parser.isMatch([]token.TokenType{token.MUT}) {
			if _, err := parser.consume(token.SELF, "expected 'self' after 'mut'"); err != nil {
				return ast.FnStmt{}, err
			}
			hasSelf = true
			selfMutable = true
			if !parser.isMatch([]token.TokenType{token.COMMA}) {
				break
			}
			continue
		}
		if parser.isMatch([]token.TokenType{token.SELF}) {
			hasSelf = true
			if !parser.isMatch([]token.TokenType{token.COMMA}) {
				break
			}
			continue
		}

		argument, err := parser.field()
		if err != nil {
			return ast.FnStmt{}, err
		}
		arguments = append(arguments, argument)
		if !parser.isMatch([]token.TokenType{token.COMMA}) {
			break
		}
	}
	if _, err := parser.consume(token.RPA, "expected ')' after function arguments"); err != nil {
		return ast.FnStmt{}, err
	}

	var returnType *ast.Type
	if parser.isMatch([]token.TokenType{token.ARROW}) {
		parsed, err := parser.typeNode()
		if err != nil {
			return ast.FnStmt{}, err
		}
		returnType = &parsed
	}

	if _, err := parser.consume(token.LCUR, "expected '{' before function body"); err != nil {
		return ast.FnStmt{}, err
	}
	body, err := parser.block()
	if err != nil {
		return ast.FnStmt{}, err
	}

	return ast.FnStmt{
		Location:    location,
		IsPublic:    isPublic,
		Identifier:  name.Lexeme,
		HasSelf:     hasSelf,
		SelfMutable: selfMutable,
		Arguments:   arguments,
		ReturnType:  returnType,
		Body:        body,
	}, nil
}

// field parses a single `name: type` pair.
func (parser *Parser) field() (ast.Field, error) {
	name, err := parser.consume(token.IDENTIFIER, "expected field name")
	if err != nil {
		return ast.Field{}, err
	}
	if _, err := parser.consume(token.COLON, "expected ':' after field name"); err != nil {
		return ast.Field{}, err
	}
	fieldType, err := parser.typeNode()
	if err != nil {
		return ast.Field{}, err
	}
	return ast.Field{
		Location:   name.Location,
		Identifier: name.Lexeme,
		Type:       fieldType,
	}, nil
}

// structStatement parses a structure declaration:
// `struct Name { field: type, ... }`.
func (parser *Parser) structStatement() (ast.Stmt, error) {
	location := parser.previous().Location
	name, err := parser.consume(token.IDENTIFIER, "expected structure name")
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.LCUR, "expected '{' after structure name"); err != nil {
		return nil, err
	}
	fields := []ast.Field{}
	for !parser.checkType(token.RCUR) {
		field, err := parser.field()
		if err != nil {
			return nil, err
		}
		fields = append(fields, field)
		if !parser.isMatch([]token.TokenType{token.COMMA}) {
			break
		}
	}
	if _, err := parser.consume(token.RCUR, "expected '}' after structure fields"); err != nil {
		return nil, err
	}
	return ast.StructStmt{
		Location:   location,
		Identifier: name.Lexeme,
		Fields:     fields,
	}, nil
}

// enumStatement parses an enumeration declaration:
// `enum Name { Variant = literal, ... }`.
func (parser *Parser) enumStatement() (ast.Stmt, error) {
	location := parser.previous().Location
	name, err := parser.consume(token.IDENTIFIER, "expected enumeration name")
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.LCUR, "expected '{' after enumeration name"); err != nil {
		return nil, err
	}
	variants := []ast.Variant{}
	for !parser.checkType(token.RCUR) {
		variantName, err := parser.consume(token.IDENTIFIER, "expected variant name")
		if err != nil {
			return nil, err
		}
		if _, err := parser.consume(token.ASSIGN, "expected '=' after variant name"); err != nil {
			return nil, err
		}
		value, err := parser.consume(token.INT, "expected integer literal as variant value")
		if err != nil {
			return nil, err
		}
		variants = append(variants, ast.Variant{
			Location:   variantName.Location,
			Identifier: variantName.Lexeme,
			Value:      ast.IntegerLiteral{Digits: value.Lexeme, Base: value.Base},
		})
		if !parser.isMatch([]token.TokenType{token.COMMA}) {
			break
		}
	}
	if _, err := parser.consume(token.RCUR, "expected '}' after enumeration variants"); err != nil {
		return nil, err
	}
	return ast.EnumStmt{
		Location:   location,
		Identifier: name.Lexeme,
		Variants:   variants,
	}, nil
}

// typeStatement parses a type alias declaration: `type Name = type;`.
func (parser *Parser) typeStatement() (ast.Stmt, error) {
	location := parser.previous().Location
	name, err := parser.consume(token.IDENTIFIER, "expected type alias name")
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.ASSIGN, "expected '=' after type alias name"); err != nil {
		return nil, err
	}
	aliased, err := parser.typeNode()
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.SEMICOLON, "expected ';' after type alias"); err != nil {
		return nil, err
	}
	return ast.TypeStmt{
		Location:   location,
		Identifier: name.Lexeme,
		Type:       aliased,
	}, nil
}

// modStatement parses a module declaration: `mod name;`.
func (parser *Parser) modStatement() (ast.Stmt, error) {
	location := parser.previous().Location
	name, err := parser.consume(token.IDENTIFIER, "expected module name")
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.SEMICOLON, "expected ';' after module name"); err != nil {
		return nil, err
	}
	return ast.ModStmt{
		Location:   location,
		Identifier: name.Lexeme,
	}, nil
}

// useStatement parses an import declaration: `use path::to::item;`.
func (parser *Parser) useStatement() (ast.Stmt, error) {
	location := parser.previous().Location
	path, err := parser.access()
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.SEMICOLON, "expected ';' after import path"); err != nil {
		return nil, err
	}
	return ast.UseStmt{
		Location: location,
		Path:     path,
	}, nil
}

// contractStatement parses a contract declaration: ordered storage fields
// followed by methods.
func (parser *Parser) contractStatement() (ast.Stmt, error) {
	location := parser.previous().Location
	name, err := parser.consume(token.IDENTIFIER, "expected contract name")
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.LCUR, "expected '{' after contract name"); err != nil {
		return nil, err
	}

	fields := []ast.Field{}
	methods := []ast.FnStmt{}
	for !parser.checkType(token.RCUR) && !parser.isFinished() {
		switch {
		case parser.isMatch([]token.TokenType{token.PUB}):
			if _, err := parser.consume(token.FUNC, "expected 'fn' after 'pub'"); err != nil {
				return nil, err
			}
			method, err := parser.fnStatement(true)
			if err != nil {
				return nil, err
			}
			methods = append(methods, method)
		case parser.isMatch([]token.TokenType{token.FUNC}):
			method, err := parser.fnStatement(false)
			if err != nil {
				return nil, err
			}
			methods = append(methods, method)
		default:
			field, err := parser.field()
			if err != nil {
				return nil, err
			}
			fields = append(fields, field)
			if _, err := parser.consume(token.SEMICOLON, "expected ';' after storage field"); err != nil {
				return nil, err
			}
		}
	}
	if _, err := parser.consume(token.RCUR, "expected '}' after contract body"); err != nil {
		return nil, err
	}

	return ast.ContractStmt{
		Location:   location,
		Identifier: name.Lexeme,
		Fields:     fields,
		Methods:    methods,
	}, nil
}

// implStatement parses an implementation block: `impl Name { fn ... }`.
func (parser *Parser) implStatement() (ast.Stmt, error) {
	location := parser.previous().Location
	name, err := parser.consume(token.IDENTIFIER, "expected type name after 'impl'")
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.LCUR, "expected '{' after impl target"); err != nil {
		return nil, err
	}
	functions := []ast.FnStmt{}
	for !parser.checkType(token.RCUR) && !parser.isFinished() {
		isPublic := parser.isMatch([]token.TokenType{token.PUB})
		if _, err := parser.consume(token.FUNC, "expected 'fn' inside impl block"); err != nil {
			return nil, err
		}
		function, err := parser.fnStatement(isPublic)
		if err != nil {
			return nil, err
		}
		functions = append(functions, function)
	}
	if _, err := parser.consume(token.RCUR, "expected '}' after impl block"); err != nil {
		return nil, err
	}
	return ast.ImplStmt{
		Location:   location,
		Identifier: name.Lexeme,
		Functions:  functions,
	}, nil
}

// forStatement parses a bounded loop statement:
// `for name in start..end [while condition] { ... }`.
func (parser *Parser) forStatement() (ast.Stmt, error) {
	location := parser.previous().Location
	name, err := parser.consume(token.IDENTIFIER, "expected loop variable name")
	if err != nil {
		return nil, err
	}
	if _, err := parser.consume(token.IN, "expected 'in' after loop variable"); err != nil {
		return nil, err
	}

	wasForbidden := parser.noStructLiteral
	parser.noStructLiteral = true
	rangeExpr, err := parser.expression()
	if err != nil {
		return nil, err
	}

	var while *ast.Expression
	if parser.isMatch([]token.TokenType{token.WHILE}) {
		condition, err := parser.expression()
		if err != nil {
			return nil, err
		}
		while = &condition
	}
	parser.noStructLiteral = wasForbidden

	if _, err := parser.consume(token.LCUR, "expected '{' before loop body"); err != nil {
		return nil, err
	}
	body, err := parser.block()
	if err != nil {
		return nil, err
	}

	return ast.ForStmt{
		Location:   location,
		Identifier: name.Lexeme,
		Range:      rangeExpr,
		While:      while,
		Body:       body,
	}, nil
}

// block parses a block body after its opening '{': a list of statements
// optionally followed by a result expression before the closing '}'.
func (parser *Parser) block() (ast.BlockExpression, error) {
	location := parser.previous().Location
	statements := []ast.Stmt{}
	var result *ast.Expression

	for !parser.checkType(token.RCUR) && !parser.isFinished() {
		// stray semicolons, e.g. after a loop's closing brace
		if parser.isMatch([]token.TokenType{token.SEMICOLON}) {
			continue
		}
		if parser.isMatch([]token.TokenType{token.LET}) {
			statement, err := parser.letStatement()
			if err != nil {
				return ast.BlockExpression{}, err
			}
			statements = append(statements, statement)
			continue
		}
		if parser.isMatch([]token.TokenType{token.FOR}) {
			statement, err := parser.forStatement()
			if err != nil {
				return ast.BlockExpression{}, err
			}
			statements = append(statements, statement)
			continue
		}

		expressionLocation := parser.peek().Location
		expression, err := parser.expression()
		if err != nil {
			return ast.BlockExpression{}, err
		}
		if parser.isMatch([]token.TokenType{token.SEMICOLON}) {
			statements = append(statements, ast.ExpressionStmt{
				Location:   expressionLocation,
				Expression: expression,
			})
			continue
		}
		// no semicolon: this must be the block result
		result = &expression
		break
	}

	if _, err := parser.consume(token.RCUR, "expected '}' after block"); err != nil {
		return ast.BlockExpression{}, err
	}
	return ast.BlockExpression{
		Location:   location,
		Statements: statements,
		Result:     result,
	}, nil
}

// typeNode parses a type notation: scalar keywords, unit, arrays, tuples,
// `Self` and named paths.
func (parser *Parser) typeNode() (ast.Type, error) {
	currentToken := parser.peek()
	location := currentToken.Location

	switch {
	case parser.isMatch([]token.TokenType{token.BOOL}):
		return ast.Type{Location: location, Variant: ast.TypeBoolean}, nil
	case parser.isMatch([]token.TokenType{token.FIELD}):
		return ast.Type{Location: location, Variant: ast.TypeField}, nil
	case parser.isMatch([]token.TokenType{token.UINT}):
		return ast.Type{Location: location, Variant: ast.TypeIntegerUnsigned, Bitlength: parser.previous().Base}, nil
	case parser.isMatch([]token.TokenType{token.SINT}):
		return ast.Type{Location: location, Variant: ast.TypeIntegerSigned, Bitlength: parser.previous().Base}, nil
	case parser.isMatch([]token.TokenType{token.SELF_BIG}):
		return ast.Type{Location: location, Variant: ast.TypeSelf}, nil
	case parser.isMatch([]token.TokenType{token.LBRACKET}):
		element, err := parser.typeNode()
		if err != nil {
			return ast.Type{}, err
		}
		if _, err := parser.consume(token.SEMICOLON, "expected ';' in array type"); err != nil {
			return ast.Type{}, err
		}
		size, err := parser.expression()
		if err != nil {
			return ast.Type{}, err
		}
		if _, err := parser.consume(token.RBRACKET, "expected ']' after array size"); err != nil {
			return ast.Type{}, err
		}
		return ast.Type{
			Location: location,
			Variant:  ast.TypeArray,
			Element:  &element,
			Size:     &size,
		}, nil
	case parser.isMatch([]token.TokenType{token.LPA}):
		if parser.isMatch([]token.TokenType{token.RPA}) {
			return ast.Type{Location: location, Variant: ast.TypeUnit}, nil
		}
		elements := []ast.Type{}
		for {
			element, err := parser.typeNode()
			if err != nil {
				return ast.Type{}, err
			}
			elements = append(elements, element)
			if !parser.isMatch([]token.TokenType{token.COMMA}) {
				break
			}
			if parser.checkType(token.RPA) {
				break
			}
		}
		if _, err := parser.consume(token.RPA, "expected ')' after tuple type"); err != nil {
			return ast.Type{}, err
		}
		if len(elements) == 1 {
			// a parenthesized type is the type itself
			return elements[0], nil
		}
		return ast.Type{
			Location: location,
			Variant:  ast.TypeTuple,
			Elements: elements,
		}, nil
	case parser.checkType(token.IDENTIFIER):
		reference, err := parser.access()
		if err != nil {
			return ast.Type{}, err
		}
		return ast.Type{
			Location:  location,
			Variant:   ast.TypeReference,
			Reference: &reference,
		}, nil
	}

	return ast.Type{}, CreateSyntaxError(location,
		fmt.Sprintf("expected a type, found '%s'", currentToken.Lexeme))
}
