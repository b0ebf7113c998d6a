package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const headerSessionID = "X-Session-ID"

// shopper выполняет сценарии от имени гостей; каждая итерация — новая сессия.
type shopper struct {
	baseURL string
	client  *http.Client
	col     *collector
}

type productsResponse struct {
	Products []struct {
		ID string `json:"id"`
	} `json:"products"`
}

func (s *shopper) runScenario(cfg config) (err error) {
	start := time.Now()
	defer func() {
		status := statusOK
		if err != nil {
			status = statusLabel(err)
		}
		s.col.record("scenario", time.Since(start), status)
	}()

	if cfg.mode == modeBrowse {
		var products productsResponse
		session, err := s.call("ListProducts", http.MethodGet, "/products?limit=20", "", nil, &products)
		if err != nil {
			return err
		}
		if len(products.Products) == 0 {
			return nil
		}
		_, err = s.call("GetProduct", http.MethodGet, "/products/"+url.PathEscape(products.Products[0].ID), session, nil, nil)
		return err
	}

	session, err := s.call("GetCart", http.MethodGet, "/cart", "", nil, nil)
	if err != nil {
		return err
	}
	item := map[string]any{"product_id": cfg.productID, "quantity": cfg.quantity}
	if _, err := s.call("AddItem", http.MethodPost, "/cart/items", session, item, nil); err != nil {
		return err
	}
	update := map[string]any{"quantity": cfg.quantity + 1}
	if _, err := s.call("UpdateItem", http.MethodPatch, "/cart/items/"+url.PathEscape(cfg.productID), session, update, nil); err != nil {
		return err
	}
	if _, err := s.call("GetTotals", http.MethodGet, "/cart/totals", session, nil, nil); err != nil {
		return err
	}
	if cfg.mode == modeCartClear {
		_, err = s.call("ClearCart", http.MethodDelete, "/cart", session, nil, nil)
	}
	return err
}

// statusError — ответ API с кодом не 2xx.
type statusError struct {
	code int
}

func (e statusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.code)
}

const statusOK = "ok"

func statusLabel(err error) string {
	if se, ok := err.(statusError); ok {
		return fmt.Sprintf("%d", se.code)
	}
	return "transport_error"
}

// call выполняет запрос, записывает задержку и возвращает идентификатор сессии из ответа.
func (s *shopper) call(name, method, path, session string, body, out any) (string, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return "", err
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, s.baseURL+path, reader)
	if err != nil {
		return "", err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if session != "" {
		req.Header.Set(headerSessionID, session)
	}

	start := time.Now()
	resp, err := s.client.Do(req)
	if err != nil {
		s.col.record(name, time.Since(start), statusLabel(err))
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		err := statusError{code: resp.StatusCode}
		s.col.record(name, time.Since(start), statusLabel(err))
		return "", err
	}
	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			s.col.record(name, time.Since(start), "decode_error")
			return "", err
		}
	} else {
		_, _ = io.Copy(io.Discard, resp.Body)
	}
	s.col.record(name, time.Since(start), statusOK)

	if returned := resp.Header.Get(headerSessionID); returned != "" {
		session = returned
	}
	return session, nil
}
