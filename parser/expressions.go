// expressions.go contains the expression grammar: one method per precedence
// rung, lowest first. Every method returns a complete Reverse-Polish
// expression; binary rungs concatenate the operand sequences and append the
// operator element.
package parser

import (
	"fmt"

	"github.com/ReggieRumsfeld/zinc/ast"
	"github.com/ReggieRumsfeld/zinc/token"
)

var comparisonOperators = map[token.TokenType]ast.Operator{
	token.EQUAL_EQUAL:  ast.OperatorEquals,
	token.NOT_EQUAL:    ast.OperatorNotEquals,
	token.LARGER_EQUAL: ast.OperatorGreaterEquals,
	token.LESS_EQUAL:   ast.OperatorLesserEquals,
	token.LARGER:       ast.OperatorGreater,
	token.LESS:         ast.OperatorLesser,
}

// appendBinary merges the right operand sequence into the left one and
// appends the operator element, producing `left right operator`.
func appendBinary(left ast.Expression, right ast.Expression, operator ast.Operator, at token.Location) ast.Expression {
	elements := append(left.Elements, right.Elements...)
	elements = append(elements, ast.ExpressionElement{
		Location: at,
		Object:   ast.OperatorElement{Operator: operator},
	})
	return ast.Expression{Location: left.Location, Elements: elements}
}

// appendOperand wraps a single operand object into an expression.
func appendOperand(object ast.ExpressionObject, at token.Location) ast.Expression {
	return ast.Expression{
		Location: at,
		Elements: []ast.ExpressionElement{{Location: at, Object: object}},
	}
}

// expression is the entry point for parsing expressions. It begins at
// the assignment rung, which encompasses all lower-precedence rules.
func (parser *Parser) expression() (ast.Expression, error) {
	return parser.assignment()
}

// assignment parses `place = value`. The left-hand side is validated during
// semantic analysis, where it must resolve to a mutable place.
func (parser *Parser) assignment() (ast.Expression, error) {
	expression, err := parser.rangeExpression()
	if err != nil {
		return ast.Expression{}, err
	}
	if parser.isMatch([]token.TokenType{token.ASSIGN}) {
		operator := parser.previous()
		value, err := parser.rangeExpression()
		if err != nil {
			return ast.Expression{}, err
		}
		return appendBinary(expression, value, ast.OperatorAssignment, operator.Location), nil
	}
	return expression, nil
}

// rangeExpression parses `start..end` and `start..=end` bounds.
func (parser *Parser) rangeExpression() (ast.Expression, error) {
	expression, err := parser.or()
	if err != nil {
		return ast.Expression{}, err
	}
	if parser.isMatch([]token.TokenType{token.RANGE_INC}) {
		operator := parser.previous()
		right, err := parser.or()
		if err != nil {
			return ast.Expression{}, err
		}
		return appendBinary(expression, right, ast.OperatorRangeInclusive, operator.Location), nil
	}
	if parser.isMatch([]token.TokenType{token.RANGE}) {
		operator := parser.previous()
		right, err := parser.or()
		if err != nil {
			return ast.Expression{}, err
		}
		return appendBinary(expression, right, ast.OperatorRange, operator.Location), nil
	}
	return expression, nil
}

// or parses a logical OR expression, building a left-associative sequence.
func (parser *Parser) or() (ast.Expression, error) {
	expression, err := parser.xor()
	if err != nil {
		return ast.Expression{}, err
	}
	for parser.isMatch([]token.TokenType{token.OR_OR}) {
		operator := parser.previous()
		right, err := parser.xor()
		if err != nil {
			return ast.Expression{}, err
		}
		expression = appendBinary(expression, right, ast.OperatorOr, operator.Location)
	}
	return expression, nil
}

// xor parses a logical XOR expression.
func (parser *Parser) xor() (ast.Expression, error) {
	expression, err := parser.and()
	if err != nil {
		return ast.Expression{}, err
	}
	for parser.isMatch([]token.TokenType{token.XOR_XOR}) {
		operator := parser.previous()
		right, err := parser.and()
		if err != nil {
			return ast.Expression{}, err
		}
		expression = appendBinary(expression, right, ast.OperatorXor, operator.Location)
	}
	return expression, nil
}

// and parses a logical AND expression.
func (parser *Parser) and() (ast.Expression, error) {
	expression, err := parser.comparison()
	if err != nil {
		return ast.Expression{}, err
	}
	for parser.isMatch([]token.TokenType{token.AND_AND}) {
		operator := parser.previous()
		right, err := parser.comparison()
		if err != nil {
			return ast.Expression{}, err
		}
		expression = appendBinary(expression, right, ast.OperatorAnd, operator.Location)
	}
	return expression, nil
}

// comparison parses a comparison expression. Comparisons do not chain:
// `a < b < c` is a syntax error surfaced by the caller failing on the
// second '<'.
func (parser *Parser) comparison() (ast.Expression, error) {
	expression, err := parser.bitwiseOr()
	if err != nil {
		return ast.Expression{}, err
	}
	for tokenType, operator := range comparisonOperators {
		if parser.isMatch([]token.TokenType{tokenType}) {
			operatorToken := parser.previous()
			right, err := parser.bitwiseOr()
			if err != nil {
				return ast.Expression{}, err
			}
			return appendBinary(expression, right, operator, operatorToken.Location), nil
		}
	}
	return expression, nil
}

// bitwiseOr parses a bitwise OR expression.
func (parser *Parser) bitwiseOr() (ast.Expression, error) {
	expression, err := parser.bitwiseXor()
	if err != nil {
		return ast.Expression{}, err
	}
	for parser.isMatch([]token.TokenType{token.OR}) {
		operator := parser.previous()
		right, err := parser.bitwiseXor()
		if err != nil {
			return ast.Expression{}, err
		}
		expression = appendBinary(expression, right, ast.OperatorBitwiseOr, operator.Location)
	}
	return expression, nil
}

// bitwiseXor parses a bitwise XOR expression.
func (parser *Parser) bitwiseXor() (ast.Expression, error) {
	expression, err := parser.bitwiseAnd()
	if err != nil {
		return ast.Expression{}, err
	}
	for parser.isMatch([]token.TokenType{token.XOR}) {
		operator := parser.previous()
		right, err := parser.bitwiseAnd()
		if err != nil {
			return ast.Expression{}, err
		}
		expression = appendBinary(expression, right, ast.OperatorBitwiseXor, operator.Location)
	}
	return expression, nil
}

// bitwiseAnd parses a bitwise AND expression.
func (parser *Parser) bitwiseAnd() (ast.Expression, error) {
	expression, err := parser.shift()
	if err != nil {
		return ast.Expression{}, err
	}
	for parser.isMatch([]token.TokenType{token.AND}) {
		operator := parser.previous()
		right, err := parser.shift()
		if err != nil {
			return ast.Expression{}, err
		}
		expression = appendBinary(expression, right, ast.OperatorBitwiseAnd, operator.Location)
	}
	return expression, nil
}

// shift parses bitwise shift expressions.
func (parser *Parser) shift() (ast.Expression, error) {
	expression, err := parser.term()
	if err != nil {
		return ast.Expression{}, err
	}
	for {
		var operator ast.Operator
		switch {
		case parser.isMatch([]token.TokenType{token.SHIFT_LEFT}):
			operator = ast.OperatorBitwiseShiftLeft
		case parser.isMatch([]token.TokenType{token.SHIFT_RIGHT}):
			operator = ast.OperatorBitwiseShiftRight
		default:
			return expression, nil
		}
		operatorToken := parser.previous()
		right, err := parser.term()
		if err != nil {
			return ast.Expression{}, err
		}
		expression = appendBinary(expression, right, operator, operatorToken.Location)
	}
}

// term parses addition and subtraction expressions.
func (parser *Parser) term() (ast.Expression, error) {
	expression, err := parser.factor()
	if err != nil {
		return ast.Expression{}, err
	}
	for {
		var operator ast.Operator
		switch {
		case parser.isMatch([]token.TokenType{token.ADD}):
			operator = ast.OperatorAddition
		case parser.isMatch([]token.TokenType{token.SUB}):
			operator = ast.OperatorSubtraction
		default:
			return expression, nil
		}
		operatorToken := parser.previous()
		right, err := parser.factor()
		if err != nil {
			return ast.Expression{}, err
		}
		expression = appendBinary(expression, right, operator, operatorToken.Location)
	}
}

// factor parses multiplication, division and remainder expressions.
func (parser *Parser) factor() (ast.Expression, error) {
	expression, err := parser.casting()
	if err != nil {
		return ast.Expression{}, err
	}
	for {
		var operator ast.Operator
		switch {
		case parser.isMatch([]token.TokenType{token.MULT}):
			operator = ast.OperatorMultiplication
		case parser.isMatch([]token.TokenType{token.DIV}):
			operator = ast.OperatorDivision
		case parser.isMatch([]token.TokenType{token.REM}):
			operator = ast.OperatorRemainder
		default:
			return expression, nil
		}
		operatorToken := parser.previous()
		right, err := parser.casting()
		if err != nil {
			return ast.Expression{}, err
		}
		expression = appendBinary(expression, right, operator, operatorToken.Location)
	}
}

// casting parses `expression as type` chains.
func (parser *Parser) casting() (ast.Expression, error) {
	expression, err := parser.unary()
	if err != nil {
		return ast.Expression{}, err
	}
	for parser.isMatch([]token.TokenType{token.AS}) {
		operator := parser.previous()
		target, err := parser.typeNode()
		if err != nil {
			return ast.Expression{}, err
		}
		right := appendOperand(ast.TypeOperand{Type: target}, target.Location)
		expression = appendBinary(expression, right, ast.OperatorCasting, operator.Location)
	}
	return expression, nil
}

// unary parses unary prefix expressions: `-a`, `!a` and `~a`.
func (parser *Parser) unary() (ast.Expression, error) {
	var operator ast.Operator
	switch {
	case parser.isMatch([]token.TokenType{token.SUB}):
		operator = ast.OperatorNegation
	case parser.isMatch([]token.TokenType{token.BANG}):
		operator = ast.OperatorNot
	case parser.isMatch([]token.TokenType{token.TILDE}):
		operator = ast.OperatorBitwiseNot
	default:
		return parser.access()
	}
	operatorToken := parser.previous()
	right, err := parser.unary()
	if err != nil {
		return ast.Expression{}, err
	}
	elements := append(right.Elements, ast.ExpressionElement{
		Location: operatorToken.Location,
		Object:   ast.OperatorElement{Operator: operator},
	})
	return ast.Expression{Location: operatorToken.Location, Elements: elements}, nil
}

// access parses the highest-precedence postfix forms: path segments,
// field accesses, indexing and calls.
func (parser *Parser) access() (ast.Expression, error) {
	expression, err := parser.primary()
	if err != nil {
		return ast.Expression{}, err
	}

	for {
		switch {
		case parser.isMatch([]token.TokenType{token.PATH}):
			operatorToken := parser.previous()
			segment, err := parser.consume(token.IDENTIFIER, "expected identifier after '::'")
			if err != nil {
				return ast.Expression{}, err
			}
			right := appendOperand(ast.Identifier{Name: segment.Lexeme}, segment.Location)
			expression = appendBinary(expression, right, ast.OperatorPath, operatorToken.Location)

		case parser.isMatch([]token.TokenType{token.DOT}):
			operatorToken := parser.previous()
			currentToken := parser.peek()
			switch currentToken.TokenType {
			case token.IDENTIFIER:
				parser.advance()
				right := appendOperand(ast.Identifier{Name: currentToken.Lexeme}, currentToken.Location)
				expression = appendBinary(expression, right, ast.OperatorField, operatorToken.Location)
			case token.INT:
				parser.advance()
				right := appendOperand(ast.IntegerLiteral{Digits: currentToken.Lexeme, Base: currentToken.Base}, currentToken.Location)
				expression = appendBinary(expression, right, ast.OperatorField, operatorToken.Location)
			default:
				return ast.Expression{}, CreateSyntaxError(currentToken.Location,
					fmt.Sprintf("expected field name or tuple index after '.', found '%s'", currentToken.Lexeme))
			}

		case parser.isMatch([]token.TokenType{token.LBRACKET}):
			operatorToken := parser.previous()
			index, err := parser.expression()
			if err != nil {
				return ast.Expression{}, err
			}
			if _, err := parser.consume(token.RBRACKET, "expected ']' after index expression"); err != nil {
				return ast.Expression{}, err
			}
			expression = appendBinary(expression, index, ast.OperatorIndex, operatorToken.Location)

		case parser.isMatch([]token.TokenType{token.LPA}):
			operatorToken := parser.previous()
			arguments := []ast.Expression{}
			wasForbidden := parser.noStructLiteral
			parser.noStructLiteral = false
			for !parser.checkType(token.RPA) {
				argument, err := parser.expression()
				if err != nil {
					return ast.Expression{}, err
				}
				arguments = append(arguments, argument)
				if !parser.isMatch([]token.TokenType{token.COMMA}) {
					break
				}
			}
			parser.noStructLiteral = wasForbidden
			if _, err := parser.consume(token.RPA, "expected ')' after call arguments"); err != nil {
				return ast.Expression{}, err
			}
			right := appendOperand(ast.ListOperand{Expressions: arguments}, operatorToken.Location)
			expression = appendBinary(expression, right, ast.OperatorCall, operatorToken.Location)

		default:
			return expression, nil
		}
	}
}

// primary parses the operand forms: literals, identifiers, blocks, arrays,
// tuples, structure literals, conditionals and match expressions.
func (parser *Parser) primary() (ast.Expression, error) {
	currentToken := parser.peek()
	at := currentToken.Location

	switch {
	case parser.isMatch([]token.TokenType{token.FALSE}):
		return appendOperand(ast.BooleanLiteral{Value: false}, at), nil
	case parser.isMatch([]token.TokenType{token.TRUE}):
		return appendOperand(ast.BooleanLiteral{Value: true}, at), nil
	case parser.isMatch([]token.TokenType{token.INT}):
		return appendOperand(ast.IntegerLiteral{Digits: currentToken.Lexeme, Base: currentToken.Base}, at), nil
	case parser.isMatch([]token.TokenType{token.STRING}):
		return appendOperand(ast.StringLiteral{Value: currentToken.Lexeme}, at), nil
	case parser.isMatch([]token.TokenType{token.UINT}):
		target := ast.Type{Location: at, Variant: ast.TypeIntegerUnsigned, Bitlength: currentToken.Base}
		return appendOperand(ast.TypeOperand{Type: target}, at), nil
	case parser.isMatch([]token.TokenType{token.SINT}):
		target := ast.Type{Location: at, Variant: ast.TypeIntegerSigned, Bitlength: currentToken.Base}
		return appendOperand(ast.TypeOperand{Type: target}, at), nil
	case parser.isMatch([]token.TokenType{token.FIELD}):
		target := ast.Type{Location: at, Variant: ast.TypeField}
		return appendOperand(ast.TypeOperand{Type: target}, at), nil
	case parser.isMatch([]token.TokenType{token.BOOL}):
		target := ast.Type{Location: at, Variant: ast.TypeBoolean}
		return appendOperand(ast.TypeOperand{Type: target}, at), nil
	case parser.isMatch([]token.TokenType{token.SELF}):
		return appendOperand(ast.Identifier{Name: "self"}, at), nil
	case parser.isMatch([]token.TokenType{token.IDENTIFIER}):
		identifier := appendOperand(ast.Identifier{Name: currentToken.Lexeme}, at)
		if parser.checkType(token.LCUR) && !parser.noStructLiteral {
			return parser.structureLiteral(identifier)
		}
		return identifier, nil
	case parser.isMatch([]token.TokenType{token.IF}):
		conditional, err := parser.conditional()
		if err != nil {
			return ast.Expression{}, err
		}
		return appendOperand(ast.ConditionalOperand{Conditional: conditional}, at), nil
	case parser.isMatch([]token.TokenType{token.MATCH}):
		match, err := parser.matchExpression()
		if err != nil {
			return ast.Expression{}, err
		}
		return appendOperand(ast.MatchOperand{Match: match}, at), nil
	case parser.isMatch([]token.TokenType{token.LCUR}):
		block, err := parser.block()
		if err != nil {
			return ast.Expression{}, err
		}
		return appendOperand(ast.BlockOperand{Block: block}, at), nil
	case parser.isMatch([]token.TokenType{token.LBRACKET}):
		array, err := parser.arrayLiteral(at)
		if err != nil {
			return ast.Expression{}, err
		}
		return appendOperand(ast.ArrayOperand{Array: array}, at), nil
	case parser.isMatch([]token.TokenType{token.LPA}):
		return parser.parenthesized(at)
	}

	return ast.Expression{}, CreateSyntaxError(at,
		fmt.Sprintf("expected an expression, found '%s'", currentToken.Lexeme))
}

// structureLiteral parses `Path { field: value, ... }` given the
// already-parsed path expression.
func (parser *Parser) structureLiteral(path ast.Expression) (ast.Expression, error) {
	open, err := parser.consume(token.LCUR, "expected '{' before structure fields")
	if err != nil {
		return ast.Expression{}, err
	}
	fields := []ast.StructureExpressionField{}
	for !parser.checkType(token.RCUR) {
		name, err := parser.consume(token.IDENTIFIER, "expected field name in structure literal")
		if err != nil {
			return ast.Expression{}, err
		}
		if _, err := parser.consume(token.COLON, "expected ':' after field name"); err != nil {
			return ast.Expression{}, err
		}
		value, err := parser.expression()
		if err != nil {
			return ast.Expression{}, err
		}
		fields = append(fields, ast.StructureExpressionField{
			Identifier: name.Lexeme,
			Expression: value,
		})
		if !parser.isMatch([]token.TokenType{token.COMMA}) {
			break
		}
	}
	if _, err := parser.consume(token.RCUR, "expected '}' after structure fields"); err != nil {
		return ast.Expression{}, err
	}
	structure := ast.StructureExpression{
		Location: open.Location,
		Path:     path,
		Fields:   fields,
	}
	return appendOperand(ast.StructureOperand{Structure: structure}, path.Location), nil
}

// arrayLiteral parses the inside of `[ ... ]`: either comma-separated
// elements or the `[value; size]` repetition form.
func (parser *Parser) arrayLiteral(at token.Location) (ast.ArrayExpression, error) {
	if parser.isMatch([]token.TokenType{token.RBRACKET}) {
		return ast.ArrayExpression{Location: at}, nil
	}

	first, err := parser.expression()
	if err != nil {
		return ast.ArrayExpression{}, err
	}

	if parser.isMatch([]token.TokenType{token.SEMICOLON}) {
		size, err := parser.expression()
		if err != nil {
			return ast.ArrayExpression{}, err
		}
		if _, err := parser.consume(token.RBRACKET, "expected ']' after array size"); err != nil {
			return ast.ArrayExpression{}, err
		}
		return ast.ArrayExpression{
			Location: at,
			Elements: []ast.Expression{first},
			Repeated: true,
			Size:     &size,
		}, nil
	}

	elements := []ast.Expression{first}
	for parser.isMatch([]token.TokenType{token.COMMA}) {
		if parser.checkType(token.RBRACKET) {
			break
		}
		element, err := parser.expression()
		if err != nil {
			return ast.ArrayExpression{}, err
		}
		elements = append(elements, element)
	}
	if _, err := parser.consume(token.RBRACKET, "expected ']' after array elements"); err != nil {
		return ast.ArrayExpression{}, err
	}
	return ast.ArrayExpression{Location: at, Elements: elements}, nil
}

// parenthesized parses `( ... )`: the unit literal, a grouped expression or
// a tuple literal.
func (parser *Parser) parenthesized(at token.Location) (ast.Expression, error) {
	if parser.isMatch([]token.TokenType{token.RPA}) {
		tuple := ast.TupleExpression{Location: at}
		return appendOperand(ast.TupleOperand{Tuple: tuple}, at), nil
	}

	wasForbidden := parser.noStructLiteral
	parser.noStructLiteral = false
	defer func() { parser.noStructLiteral = wasForbidden }()

	first, err := parser.expression()
	if err != nil {
		return ast.Expression{}, err
	}

	if parser.isMatch([]token.TokenType{token.RPA}) {
		// a grouped expression is the expression itself; grouping only
		// affects the order in which elements were appended
		return first, nil
	}

	elements := []ast.Expression{first}
	for parser.isMatch([]token.TokenType{token.COMMA}) {
		if parser.checkType(token.RPA) {
			break
		}
		element, err := parser.expression()
		if err != nil {
			return ast.Expression{}, err
		}
		elements = append(elements, element)
	}
	if _, err := parser.consume(token.RPA, "expected ')' after tuple elements"); err != nil {
		return ast.Expression{}, err
	}
	tuple := ast.TupleExpression{Location: at, Elements: elements}
	return appendOperand(ast.TupleOperand{Tuple: tuple}, at), nil
}

// conditional parses an `if` expression after its keyword.
func (parser *Parser) conditional() (ast.ConditionalExpression, error) {
	at := parser.previous().Location

	wasForbidden := parser.noStructLiteral
	parser.noStructLiteral = true
	condition, err := parser.expression()
	parser.noStructLiteral = wasForbidden
	if err != nil {
		return ast.ConditionalExpression{}, err
	}

	if _, err := parser.consume(token.LCUR, "expected '{' after condition"); err != nil {
		return ast.ConditionalExpression{}, err
	}
	then, err := parser.block()
	if err != nil {
		return ast.ConditionalExpression{}, err
	}

	conditional := ast.ConditionalExpression{
		Location:  at,
		Condition: condition,
		Then:      then,
	}

	if parser.isMatch([]token.TokenType{token.ELSE}) {
		if parser.isMatch([]token.TokenType{token.IF}) {
			elseIf, err := parser.conditional()
			if err != nil {
				return ast.ConditionalExpression{}, err
			}
			conditional.ElseIf = &elseIf
			return conditional, nil
		}
		if _, err := parser.consume(token.LCUR, "expected '{' after 'else'"); err != nil {
			return ast.ConditionalExpression{}, err
		}
		elseBlock, err := parser.block()
		if err != nil {
			return ast.ConditionalExpression{}, err
		}
		conditional.Else = &elseBlock
	}

	return conditional, nil
}

// matchExpression parses a `match` expression after its keyword.
func (parser *Parser) matchExpression() (ast.MatchExpression, error) {
	at := parser.previous().Location

	wasForbidden := parser.noStructLiteral
	parser.noStructLiteral = true
	scrutinee, err := parser.expression()
	parser.noStructLiteral = wasForbidden
	if err != nil {
		return ast.MatchExpression{}, err
	}

	if _, err := parser.consume(token.LCUR, "expected '{' after match scrutinee"); err != nil {
		return ast.MatchExpression{}, err
	}

	arms := []ast.MatchArm{}
	for !parser.checkType(token.RCUR) && !parser.isFinished() {
		pattern, err := parser.pattern()
		if err != nil {
			return ast.MatchExpression{}, err
		}
		if _, err := parser.consume(token.FAT_ARROW, "expected '=>' after match pattern"); err != nil {
			return ast.MatchExpression{}, err
		}
		expression, err := parser.expression()
		if err != nil {
			return ast.MatchExpression{}, err
		}
		arms = append(arms, ast.MatchArm{Pattern: pattern, Expression: expression})
		if !parser.isMatch([]token.TokenType{token.COMMA}) {
			break
		}
	}
	if _, err := parser.consume(token.RCUR, "expected '}' after match arms"); err != nil {
		return ast.MatchExpression{}, err
	}

	return ast.MatchExpression{
		Location:  at,
		Scrutinee: scrutinee,
		Arms:      arms,
	}, nil
}

// pattern parses a match arm pattern: a literal, a variant path, a fresh
// binding or the `_` wildcard.
func (parser *Parser) pattern() (ast.Pattern, error) {
	currentToken := parser.peek()
	at := currentToken.Location

	switch currentToken.TokenType {
	case token.INT, token.TRUE, token.FALSE:
		literal, err := parser.primary()
		if err != nil {
			return ast.Pattern{}, err
		}
		return ast.Pattern{Location: at, Variant: ast.PatternLiteral, Literal: &literal}, nil
	case token.SUB:
		literal, err := parser.unary()
		if err != nil {
			return ast.Pattern{}, err
		}
		return ast.Pattern{Location: at, Variant: ast.PatternLiteral, Literal: &literal}, nil
	case token.IDENTIFIER:
		if currentToken.Lexeme == "_" {
			parser.advance()
			return ast.Pattern{Location: at, Variant: ast.PatternWildcard}, nil
		}
		path, err := parser.access()
		if err != nil {
			return ast.Pattern{}, err
		}
		if len(path.Elements) == 1 {
			// a bare identifier binds the scrutinee to a fresh name
			identifier, _ := path.Elements[0].Object.(ast.Identifier)
			return ast.Pattern{Location: at, Variant: ast.PatternBinding, Binding: identifier.Name}, nil
		}
		return ast.Pattern{Location: at, Variant: ast.PatternPath, Path: &path}, nil
	}

	return ast.Pattern{}, CreateSyntaxError(at,
		fmt.Sprintf("expected a match pattern, found '%s'", currentToken.Lexeme))
}
