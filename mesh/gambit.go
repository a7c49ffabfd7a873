package mesh

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadGambit2D reads a Gambit neutral file of triangles. Element attributes are
// the material group numbers; each boundary condition section becomes one
// boundary attribute, numbered in file order, named by the section title.
func ReadGambit2D(filename string, verbose bool) (m *Mesh) {
	var (
		file *os.File
		err  error
	)
	if verbose {
		fmt.Printf("Reading Gambit Neutral file named: %s\n", filename)
	}
	if file, err = os.Open(filename); err != nil {
		panic(fmt.Errorf("unable to open file %s\n %s", filename, err))
	}
	defer file.Close()
	return ReadGambit2DFrom(file, verbose)
}

func ReadGambit2DFrom(r io.Reader, verbose bool) (m *Mesh) {
	var (
		reader = bufio.NewReader(r)
		err    error
	)
	// Skip first six lines
	skipLines(6, reader)

	// Get dimensions
	Nv, K, Nmats, Nbcs, Nsd := readHeader(reader)
	skipLines(2, reader)

	if verbose {
		fmt.Printf("Nv = %d, K = %d\n", Nv, K)
		fmt.Printf("Nmats = %d, Nbcs = %d\n%d space dimensions\n", Nmats, Nbcs, Nsd)
	}
	if Nsd != 2 {
		panic(fmt.Errorf("space dimensions not 2, have %d", Nsd))
	}

	verts := read2DVertices(Nv, reader)
	skipLines(2, reader)

	EToV := readTris(K, reader)
	skipLines(2, reader)

	attrs := make([]int, K)
	for i := range attrs {
		attrs[i] = 1
	}
	for i := 0; i < Nmats; i++ {
		gn, elnum, title := readMaterialHeader(reader)
		if verbose {
			fmt.Printf("Material group %d \"%s\" with %d elements\n", gn, title, elnum)
		}
		readMaterialGroup(reader, elnum, gn, attrs)
		skipLines(2, reader)
	}

	bdr, bdrAttrs, names := readBCS(Nbcs, reader, EToV)
	if m, err = NewMesh(2, verts, EToV, attrs, bdr, bdrAttrs); err != nil {
		panic(err)
	}
	m.BdrNames = names
	return
}

func readHeader(reader *bufio.Reader) (Nv, K, Nmats, Nbcs, Nsd int) {
	/*
		Nv      // num nodes in mesh
		K       // num elements
		Nmats   // num material groups
		Nbcs    // num boundary groups
		Nsd;    // num space dimensions
	*/
	var (
		line   = getLine(reader)
		n, dum int
		err    error
	)
	nargs := 6
	if n, err = fmt.Sscanf(line, "%d %d %d %d %d %d", &Nv, &K, &Nmats, &Nbcs, &Nsd, &dum); err != nil || n < nargs {
		if err == nil && n < nargs {
			err = fmt.Errorf("read fewer than %d dimensions, read %d, line: %s", nargs, n, line)
		}
		panic(err)
	}
	return
}

func read2DVertices(Nv int, reader *bufio.Reader) (verts [][]float64) {
	var (
		line   string
		err    error
		n, ind int
		x, y   float64
	)
	nargs := 3
	verts = make([][]float64, Nv)
	for i := 0; i < Nv; i++ {
		line = getLine(reader)
		if n, err = fmt.Sscanf(line, "%d %f %f", &ind, &x, &y); err != nil || n < nargs {
			if err == nil && n < nargs {
				err = fmt.Errorf("read fewer than required dimensions, read %d, need %d\n, line: %s", n, nargs, line)
			}
			panic(err)
		}
		if ind < 1 || ind > Nv {
			panic(fmt.Errorf("vertex index %d out of range, line: %s", ind, line))
		}
		verts[ind-1] = []float64{x, y}
	}
	return
}

func readTris(K int, reader *bufio.Reader) (EToV [][]int) {
	//-------------------------------------
	// ENDOFSECTION
	//    ELEMENTS/CELLS 1.3.0
	//      1  3  3        1       2       3
	//      2  3  3        3       2       4
	var (
		line                       string
		err                        error
		n, ind, typ, nfaces, nargs int
	)
	EToV = make([][]int, K)
	for i := 0; i < K; i++ {
		line = getLine(reader)
		nargs = 6
		var n1, n2, n3 int
		if n, err = fmt.Sscanf(line, "%d %d %d %d %d %d", &ind, &typ, &nfaces, &n1, &n2, &n3); err != nil || n < nargs {
			if err == nil && n < nargs {
				err = fmt.Errorf("read fewer than required dimensions, read %d, need %d\n, line: %s", n, nargs, line)
			}
			panic(err)
		}
		if ind < 1 || ind > K {
			panic(fmt.Errorf("element index %d out of range, line: %s", ind, line))
		}
		EToV[ind-1] = []int{n1 - 1, n2 - 1, n3 - 1}
	}
	return
}

func readMaterialHeader(reader *bufio.Reader) (gn, elnum int, title string) {
	/*
	   GROUP:           1 ELEMENTS:        977 MATERIAL:      1.000 NFLAGS:          0
	                     epsilon: 1.000
	          0
	*/
	var (
		line   = getLine(reader)
		n      int
		matval float64
		err    error
	)
	nargs := 3
	if n, err = fmt.Sscanf(line, "GROUP: %11d ELEMENTS:%11d MATERIAL:%11f", &gn, &elnum, &matval); err != nil || n < nargs {
		if err == nil && n < nargs {
			err = fmt.Errorf("read fewer than %d dimensions, read %d, line: %s", nargs, n, line)
		}
		panic(err)
	}
	title = strings.TrimSpace(getLine(reader))
	skipLines(1, reader)
	return
}

func readMaterialGroup(reader *bufio.Reader, elementCount, group int, attrs []int) {
	var (
		n     int
		nn    = make([]int, 10)
		err   error
		added int
	)
	if elementCount%10 != 0 {
		added = 1
	}
	numLines := elementCount/10 + added
	for i := 0; i < numLines; i++ {
		line := getLine(reader)
		nargs := 10
		if n, err = fmt.Sscanf(line, "%d %d %d %d %d %d %d %d %d %d", &nn[0], &nn[1], &nn[2], &nn[3], &nn[4], &nn[5], &nn[6], &nn[7], &nn[8], &nn[9]); err != nil || n < nargs {
			if !(n < nargs && i == numLines-1) {
				if err == nil && n < nargs {
					err = fmt.Errorf("read fewer than %d dimensions, read %d, line: %s", nargs, n, line)
				}
				panic(err)
			}
		}
		for j := 0; j < n; j++ {
			attrs[nn[j]-1] = group
		}
	}
}

func readBCS(Nbcs int, reader *bufio.Reader, EToV [][]int) (bdr [][]int, bdrAttrs []int, names map[int]string) {
	var (
		line, bctyp string
		err         error
		nargs       int
		n, bcid     int
	)
	names = make(map[int]string, Nbcs)
	for i := 0; i < Nbcs; i++ {
		// Read BC header, if BC text is "Cyl", read a float parameter
		if i != 0 {
			skipLines(1, reader)
		}
		line = getLine(reader)
		if n, err = fmt.Sscanf(line, "%32s", &bctyp); err != nil {
			panic(err)
		}
		var paramf float64
		var numfaces int
		switch strings.ToLower(bctyp) {
		case "cyl":
			if n, err = fmt.Sscanf(line, "%32s%8f%8d", &bctyp, &paramf, &numfaces); err != nil {
				panic(err)
			}
		default:
			if n, err = fmt.Sscanf(line, "%32s%8d%8d", &bctyp, &bcid, &numfaces); err != nil {
				panic(err)
			}
		}
		attr := i + 1
		names[attr] = bctyp
		for f := 0; f < numfaces; f++ {
			line = getLine(reader)
			nargs = 3
			var kp1, n2, faceNumberp1 int
			if n, err = fmt.Sscanf(line, "%d %d %d", &kp1, &n2, &faceNumberp1); err != nil || n < nargs {
				if err == nil && n < nargs {
					err = fmt.Errorf("read fewer than required dimensions, read %d, need %d\n, line: %s", n, nargs, line)
				}
				panic(err)
			}
			if faceNumberp1 < 1 || faceNumberp1 > 3 {
				panic(fmt.Errorf("triangle face number %d out of range, line: %s", faceNumberp1, line))
			}
			verts := EToV[kp1-1]
			side := faceNumberp1 - 1
			bdr = append(bdr, []int{verts[side], verts[(side+1)%3]})
			bdrAttrs = append(bdrAttrs, attr)
		}
		skipLines(1, reader)
	}
	return
}

func getLine(reader *bufio.Reader) (line string) {
	var (
		err error
	)
	line, err = reader.ReadString('\n')
	if err != nil {
		if err == io.EOF {
			err = fmt.Errorf("early end of file")
		}
		panic(err)
	}
	line = strings.TrimRight(line, "\r\n") // Strip away the newline
	return
}

func skipLines(n int, reader *bufio.Reader) {
	for i := 0; i < n; i++ {
		getLine(reader)
	}
}
