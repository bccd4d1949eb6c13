package web

import (
	"encoding/json"
	"io"
	"log"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/keks/mempart"
	"github.com/keks/mempart/memfile"
)

func (s *Server) HandlerList(w http.ResponseWriter, r *http.Request) {
	var m memfile.Manifest
	s.Partition(func(p *memfile.Partition) error {
		m = p.Manifest()
		return nil
	})
	writeJson(w, http.StatusOK, m)
}

func (s *Server) HandlerGet(w http.ResponseWriter, r *http.Request) {
	name := mempart.FileName(mux.Vars(r)["name"])

	var data []byte
	err := s.Partition(func(p *memfile.Partition) error {
		if _, err := p.Stat(name); err != nil {
			return err
		}

		f, err := p.Open(name)
		if err != nil {
			return err
		}

		data = f.Bytes()
		return nil
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename=\""+string(name)+"\"")
	writeResult(w, http.StatusOK, data)
}

// HandlerPut replaces the content of a file. Nothing changes if the new
// content does not fit.
func (s *Server) HandlerPut(w http.ResponseWriter, r *http.Request) {
	name := mempart.FileName(mux.Vars(r)["name"])

	err := s.Partition(func(p *memfile.Partition) error {
		data, err := readBody(r, p.Capacity())
		if err != nil {
			return err
		}
		return p.Replace(name, data)
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HandlerAppend adds the body to the end of a file, creating it if needed.
func (s *Server) HandlerAppend(w http.ResponseWriter, r *http.Request) {
	name := mempart.FileName(mux.Vars(r)["name"])

	err := s.Partition(func(p *memfile.Partition) error {
		data, err := readBody(r, p.Capacity())
		if err != nil {
			return err
		}

		if len(data) > p.Free() {
			return errors.Wrapf(io.ErrShortWrite, "%d bytes do not fit, %d free", len(data), p.Free())
		}

		f, err := p.Open(name)
		if err != nil {
			return err
		}

		_, err = f.WriteAt(data, f.Size())
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) HandlerDelete(w http.ResponseWriter, r *http.Request) {
	name := mempart.FileName(mux.Vars(r)["name"])

	err := s.Partition(func(p *memfile.Partition) error {
		return p.Delete(name)
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) HandlerRename(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	name, newname := mempart.FileName(vars["name"]), mempart.FileName(vars["newname"])

	err := s.Partition(func(p *memfile.Partition) error {
		return p.Rename(name, newname)
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) HandlerImage(w http.ResponseWriter, r *http.Request) {
	var image []byte
	err := s.Partition(func(p *memfile.Partition) error {
		var err error
		image, err = p.MarshalBinary()
		return err
	})
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("Content-Disposition", "attachment; filename=\"partition.img\"")
	writeResult(w, http.StatusOK, image)
}

// readBody reads at most limit bytes of the request body; more is an error.
func readBody(r *http.Request, limit int) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r.Body, int64(limit)+1))
	if err != nil {
		return nil, errors.Wrap(err, "read body")
	}
	if len(data) > limit {
		return nil, errors.Wrapf(io.ErrShortWrite, "body exceeds capacity %d", limit)
	}
	return data, nil
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, mempart.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, mempart.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, mempart.ErrNameTooLong), errors.Is(err, mempart.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, io.ErrShortWrite), errors.Is(err, mempart.ErrOutOfMemory):
		return http.StatusInsufficientStorage
	default:
		return http.StatusInternalServerError
	}
}

func writeJson(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		writeError(w, errors.Wrap(err, "marshal"))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	writeResult(w, status, data)
}

func writeResult(w http.ResponseWriter, status int, data []byte) {
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		log.Printf("[web] Error when writing response: %v", err)
	}
}

func writeError(w http.ResponseWriter, err error) {
	type jError struct {
		Error string `json:"error"`
	}

	data, merr := json.Marshal(&jError{Error: err.Error()})
	if merr != nil {
		log.Printf("[web] Error marshaling error '%v': %v", err, merr)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	log.Printf("[web] HERR: %v", string(data))
	w.Header().Set("Content-Type", "application/json")
	writeResult(w, statusOf(err), data)
}
