package velocity

// node is a template statement. pos is a byte offset into the source.
type node interface {
	offset() int
}

type base struct{ pos int }

func (b base) offset() int { return b.pos }

type (
	textNode struct {
		base
		text string
	}

	// referenceNode outputs a reference. raw is the source text printed
	// when the value is undefined and the reference is not quiet.
	referenceNode struct {
		base
		ref   *reference
		quiet bool
		raw   string
	}

	setNode struct {
		base
		target *reference
		value  expr
	}

	ifBranch struct {
		cond expr
		body []node
	}

	ifNode struct {
		base
		branches []ifBranch
		elseBody []node
	}

	foreachNode struct {
		base
		varName  string
		iterable expr
		body     []node
		elseBody []node
	}

	breakNode struct{ base }
	stopNode  struct{ base }

	macroNode struct {
		base
		name   string
		params []string
		body   []node
	}

	macroCallNode struct {
		base
		name string
		args []expr
		raw  string
	}
)

// accessor is one step of a reference chain: .name, .name(args) or [index].
type accessor struct {
	pos    int
	name   string
	index  expr
	args   []expr
	call   bool
	isElem bool
}

type reference struct {
	pos   int
	name  string
	chain []accessor
}

// expr is an expression inside a directive, index or argument list.
type expr interface {
	offset() int
}

type (
	literalExpr struct {
		base
		value any
	}

	// interpolatedExpr is a double-quoted string holding references.
	interpolatedExpr struct {
		base
		body []node
	}

	referenceExpr struct {
		base
		ref *reference
	}

	listExpr struct {
		base
		items []expr
	}

	rangeExpr struct {
		base
		from, to expr
	}

	mapExpr struct {
		base
		keys   []expr
		values []expr
	}

	unaryExpr struct {
		base
		op string
		x  expr
	}

	binaryExpr struct {
		base
		op   string
		l, r expr
	}
)
